// Package eventlog implements the append-only per-session event log:
// events.jsonl under a session's directory, one self-delimited JSON object
// per line.
//
// Grounded on internal/store/local.go's file-backed persistence style
// (open-append-flush, never rewrite in place) and internal/logging's
// append discipline; the wire format is JSON per line, matching the
// explicit on-disk format the harness's external interfaces require.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"codenerd/internal/harnesserr"
	"codenerd/internal/layout"
	"codenerd/internal/model"
)

// Log owns exclusive write access to one session's events.jsonl.
type Log struct {
	dir  *layout.AgentDir
	id   layout.SessionId
	path string
	log  *zap.Logger

	mu      sync.Mutex
	file    *os.File
	nextSeq model.Seq
}

// Open opens (creating if absent) the event log for a session, locking the
// underlying file for exclusive writes by this process. The caller owns
// the returned Log and must Close it.
func Open(dir *layout.AgentDir, id layout.SessionId, log *zap.Logger) (*Log, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := dir.EnsureSessionDirs(id); err != nil {
		return nil, err
	}

	path := dir.EventsFile(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindIO, "eventlog", "open "+path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, harnesserr.Wrap(harnesserr.KindConflict, "eventlog", "session already has an active writer", err)
	}

	next, err := countLines(path)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Log{dir: dir, id: id, path: path, log: log, file: f, nextSeq: model.Seq(next)}, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, harnesserr.Wrap(harnesserr.KindIO, "eventlog", "open "+path, err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, harnesserr.Wrap(harnesserr.KindIO, "eventlog", "scan "+path, err)
	}
	return count, nil
}

// Append writes one event, assigning it the next dense seq number, and
// returns that seq. The write is a single atomic line (no partial writes
// are ever observable by a concurrent reader).
func (l *Log) Append(event model.Event) (model.Seq, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	envelope := model.Envelope{
		Seq:       l.nextSeq,
		SessionId: l.id.String(),
		Timestamp: time.Now().UTC(),
		Event:     event,
	}

	line, err := json.Marshal(envelope)
	if err != nil {
		return 0, harnesserr.Wrap(harnesserr.KindParse, "eventlog", "marshal event", err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		l.log.Error("event append failed", zap.String("session", l.id.String()), zap.Error(err))
		return 0, harnesserr.Wrap(harnesserr.KindIO, "eventlog", "append to "+l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		l.log.Warn("event fsync failed", zap.String("session", l.id.String()), zap.Error(err))
	}

	seq := l.nextSeq
	l.nextSeq++
	return seq, nil
}

// Close releases the lock and underlying file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "eventlog", "close "+l.path, err)
	}
	return nil
}

// MalformedLineError carries the session and 1-based line number of the
// first unparsable line encountered by ReadEvents.
type MalformedLineError struct {
	SessionId string
	Line      int
	Err       error
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("eventlog: session %s: malformed event at line %d: %v", e.SessionId, e.Line, e.Err)
}

func (e *MalformedLineError) Unwrap() error { return e.Err }

// ReadEvents streams every line of a session's events.jsonl, in seq order.
// It fails fast on the first malformed line, attaching the line number via
// MalformedLineError. A reader racing with Append sees a prefix of the
// log; a line read before its write has completed fails to parse and is
// reported as malformed like any other.
func ReadEvents(dir *layout.AgentDir, id layout.SessionId) ([]model.Envelope, error) {
	path := dir.EventsFile(id)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, harnesserr.New(harnesserr.KindNotFound, "eventlog", "no session at "+path)
		}
		return nil, harnesserr.Wrap(harnesserr.KindIO, "eventlog", "open "+path, err)
	}
	defer f.Close()

	var out []model.Envelope
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		var env model.Envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			return nil, &MalformedLineError{SessionId: id.String(), Line: lineNo, Err: err}
		}
		out = append(out, env)
	}
	if err := scanner.Err(); err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindIO, "eventlog", "scan "+path, err)
	}
	return out, nil
}

// ListSessions enumerates sessions with an events.jsonl file, newest first.
func ListSessions(dir *layout.AgentDir) []layout.SessionId {
	return dir.ListSessions()
}
