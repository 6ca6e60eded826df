package log

import (
	"sync"
	"time"
)

// HTTPLogEntry is one served request
type HTTPLogEntry struct {
	Timestamp  time.Time     `json:"timestamp"`
	RequestID  string        `json:"request_id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status"`
	Duration   time.Duration `json:"duration"`
	Size       int           `json:"size"`
	RemoteAddr string        `json:"remote_addr"`
	UserAgent  string        `json:"user_agent"`
}

// HTTPLogBuffer keeps the most recent requests in memory
type HTTPLogBuffer struct {
	mu      sync.Mutex
	entries []HTTPLogEntry
	next    int
	full    bool
}

// NewHTTPLogBuffer creates a buffer holding at most size entries
func NewHTTPLogBuffer(size int) *HTTPLogBuffer {
	if size < 1 {
		size = 1
	}
	return &HTTPLogBuffer{entries: make([]HTTPLogEntry, size)}
}

// Add records an entry, evicting the oldest when full
func (b *HTTPLogBuffer) Add(e HTTPLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Entries returns the buffered entries, oldest first
func (b *HTTPLogBuffer) Entries() []HTTPLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]HTTPLogEntry(nil), b.entries[:b.next]...)
	}
	out := make([]HTTPLogEntry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	return append(out, b.entries[:b.next]...)
}

var httpLogBuffer *HTTPLogBuffer
var httpLogBufferOnce sync.Once

// GetHTTPLogBuffer returns the process-wide HTTP log buffer, creating it if necessary
func GetHTTPLogBuffer() *HTTPLogBuffer {
	httpLogBufferOnce.Do(func() {
		httpLogBuffer = NewHTTPLogBuffer(1000) // Keep last 1000 HTTP log entries
	})
	return httpLogBuffer
}

// LogHTTPRequest writes one access log line and records the request in the buffer
func LogHTTPRequest(e HTTPLogEntry) {
	GetSugaredLogger().Infow("http request",
		"request_id", e.RequestID,
		"method", e.Method,
		"path", e.Path,
		"status", e.Status,
		"duration_ms", e.Duration.Milliseconds(),
		"size", e.Size,
		"remote_addr", e.RemoteAddr,
		"user_agent", e.UserAgent,
	)
	GetHTTPLogBuffer().Add(e)
}
