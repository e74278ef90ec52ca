// Package transcript writes dialogue messages to NDJSON files.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/persona-coach/internal/domain"
)

// DefaultQueueSize bounds the number of pending events.
const DefaultQueueSize = 256

// Config controls transcript logging.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Event is one line of a transcript file.
type Event struct {
	Timestamp time.Time          `json:"ts"`
	SessionID string             `json:"session_id"`
	MessageID string             `json:"message_id"`
	Kind      domain.MessageKind `json:"kind"`
	Status    domain.Status      `json:"status,omitempty"`
	Content   string             `json:"content"`
}

// job is either an event to write or a session whose file should be closed.
type job struct {
	event   Event
	release string
}

// Logger records session messages asynchronously. Record never blocks; when
// the queue is full the event is dropped and a warning is logged.
type Logger struct {
	cfg    Config
	logger *slog.Logger
	events chan job

	mu        sync.Mutex
	closed    bool
	dropped   int
	global    *os.File
	wg        sync.WaitGroup
	openFiles map[string]*os.File
}

// New creates a transcript logger. A disabled config yields a logger whose
// Record is a no-op.
func New(cfg Config, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	l := &Logger{
		cfg:       cfg,
		logger:    logger,
		openFiles: make(map[string]*os.File),
	}
	if !cfg.Enabled {
		return l, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create transcript dir %s: %w", cfg.Dir, err)
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o750); err != nil {
			return nil, fmt.Errorf("create global transcript dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open global transcript %s: %w", cfg.GlobalPath, err)
		}
		l.global = f
	}

	l.events = make(chan job, cfg.QueueSize)
	l.wg.Add(1)
	go l.run()

	logger.Info("Transcript logging enabled", "dir", cfg.Dir, "global", cfg.GlobalEnabled, "queue_size", cfg.QueueSize)
	return l, nil
}

// Record queues msg for sessionID.
func (l *Logger) Record(sessionID string, msg domain.Message) {
	if !l.cfg.Enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	ev := Event{
		Timestamp: msg.Timestamp,
		SessionID: sessionID,
		MessageID: msg.ID,
		Kind:      msg.Kind,
		Status:    msg.Status,
		Content:   msg.Content,
	}
	select {
	case l.events <- job{event: ev}:
	default:
		l.dropped++
		l.logger.Warn("Transcript queue full, dropping event",
			"session_id", sessionID,
			"message_id", msg.ID,
			"dropped_total", l.dropped,
		)
	}
}

// Release closes the session's file once its queued events are written.
// Unlike Record it waits for queue space, so it must not run on a hot path.
func (l *Logger) Release(sessionID string) {
	if !l.cfg.Enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.events <- job{release: sessionID}
}

// Dropped returns the number of events lost to a full queue.
func (l *Logger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close drains pending events and closes all files.
func (l *Logger) Close() error {
	if !l.cfg.Enabled {
		return nil
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.events)
	l.mu.Unlock()

	l.wg.Wait()

	var firstErr error
	for id, f := range l.openFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close transcript for %s: %w", id, err)
		}
	}
	if l.global != nil {
		if err := l.global.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close global transcript: %w", err)
		}
	}
	return firstErr
}

func (l *Logger) run() {
	defer l.wg.Done()
	for j := range l.events {
		if j.release != "" {
			l.closeSession(j.release)
			continue
		}
		ev := j.event
		line, err := json.Marshal(ev)
		if err != nil {
			l.logger.Error("Failed to encode transcript event", "session_id", ev.SessionID, "error", err)
			continue
		}
		line = append(line, '\n')

		if err := l.writeSession(ev.SessionID, line); err != nil {
			l.logger.Error("Failed to write transcript", "session_id", ev.SessionID, "error", err)
		}
		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Error("Failed to write global transcript", "error", err)
			}
		}
	}
}

// closeSession is only called from run.
func (l *Logger) closeSession(sessionID string) {
	f, ok := l.openFiles[sessionID]
	if !ok {
		return
	}
	delete(l.openFiles, sessionID)
	if err := f.Close(); err != nil {
		l.logger.Warn("Failed to close transcript", "session_id", sessionID, "error", err)
	}
}

// writeSession is only called from run, so openFiles needs no lock.
func (l *Logger) writeSession(sessionID string, line []byte) error {
	f, ok := l.openFiles[sessionID]
	if !ok {
		path := filepath.Join(l.cfg.Dir, filepath.Base(sessionID)+".ndjson")
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		l.openFiles[sessionID] = f
	}
	_, err := f.Write(line)
	return err
}
