package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgnsrekt/saml_tracer/internal/session"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ArchiveWriter appends stored messages for one window to a rotating JSONL
// file. Writes are queued and flushed asynchronously so the capture path
// never blocks on disk.
type ArchiveWriter struct {
	windowID string
	writeCh  chan session.Message
	done     chan struct{}
	wg       sync.WaitGroup
	logger   *lumberjack.Logger
	mu       sync.Mutex
}

func newArchiveWriter(baseDir, windowID string, bufferSize, maxSizeMB int) *ArchiveWriter {
	dir := filepath.Join(baseDir, "archive")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("archive directory creation failed", "dir", dir, "error", err)
	}

	w := &ArchiveWriter{
		windowID: windowID,
		writeCh:  make(chan session.Message, bufferSize),
		done:     make(chan struct{}),
		logger: &lumberjack.Logger{
			Filename:   filepath.Join(dir, windowID+".jsonl"),
			MaxSize:    maxSizeMB,
			MaxBackups: 20,
			MaxAge:     30,
			LocalTime:  false,
		},
	}

	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Write queues a message for async archiving. A full buffer drops the
// record rather than blocking the capture path.
func (w *ArchiveWriter) Write(m session.Message) error {
	select {
	case <-w.done:
		return fmt.Errorf("archive writer is closed")
	default:
	}

	select {
	case w.writeCh <- m:
		return nil
	default:
		slog.Warn("archive buffer full, dropping message", "window_id", w.windowID, "message_id", m.ID)
		return fmt.Errorf("buffer full")
	}
}

// Close drains pending records and closes the underlying file.
func (w *ArchiveWriter) Close() error {
	close(w.done)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case m := <-w.writeCh:
			w.writeRecord(m)
		case <-timeout:
			slog.Warn("archive writer close timeout, some records may be lost", "window_id", w.windowID)
			goto done
		default:
			goto done
		}
	}

done:
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.logger.Close()
}

func (w *ArchiveWriter) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case m := <-w.writeCh:
			w.writeRecord(m)
		case <-w.done:
			return
		}
	}
}

func (w *ArchiveWriter) writeRecord(m session.Message) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("archive marshal failed", "window_id", w.windowID, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("archive write failed", "window_id", w.windowID, "error", err)
	}
}

// ArchiveRegistry manages one ArchiveWriter per traced window.
type ArchiveRegistry struct {
	baseDir    string
	bufferSize int
	maxSizeMB  int

	writers map[string]*ArchiveWriter
	mu      sync.RWMutex
}

func NewArchiveRegistry(baseDir string, bufferSize, maxSizeMB int) *ArchiveRegistry {
	return &ArchiveRegistry{
		baseDir:    baseDir,
		bufferSize: bufferSize,
		maxSizeMB:  maxSizeMB,
		writers:    make(map[string]*ArchiveWriter),
	}
}

// Write routes a stored message to its window's archive writer, creating
// the writer on first use.
func (r *ArchiveRegistry) Write(windowID string, m session.Message) {
	r.mu.RLock()
	w, ok := r.writers[windowID]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		w, ok = r.writers[windowID]
		if !ok {
			w = newArchiveWriter(r.baseDir, windowID, r.bufferSize, r.maxSizeMB)
			r.writers[windowID] = w
			slog.Info("archive writer opened", "window_id", windowID)
		}
		r.mu.Unlock()
	}

	_ = w.Write(m)
}

// Close closes all managed writers.
func (r *ArchiveRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for windowID, w := range r.writers {
		if err := w.Close(); err != nil {
			slog.Error("archive writer close failed", "window_id", windowID, "error", err)
			lastErr = err
		}
	}
	r.writers = make(map[string]*ArchiveWriter)
	return lastErr
}
