// Package audit appends install and uninstall events to a JSON-lines log
// next to the store registry.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	OpInstall   = "install"
	OpUninstall = "uninstall"
	OpSync      = "sync"
	OpRepair    = "repair"

	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
	StatusBlocked = "blocked"
)

type Logger struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

type Event struct {
	Timestamp string            `json:"timestamp"`
	Operation string            `json:"operation"`
	Skill     string            `json:"skill,omitempty"`
	Version   string            `json:"version,omitempty"`
	Source    string            `json:"source,omitempty"`
	Status    string            `json:"status"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func New(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

// Path returns the log file location.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Log appends ev. A nil Logger or one without a path discards events.
func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	ev.Timestamp = now().UTC().Format(time.RFC3339Nano)
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(blob, '\n')); err != nil {
		return err
	}
	return nil
}

// Read returns every well-formed event in the log, oldest first. Lines
// that fail to decode are skipped and counted.
func Read(path string) ([]Event, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	defer f.Close()

	var (
		out     []Event
		skipped int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			skipped++
			continue
		}
		out = append(out, ev)
	}
	return out, skipped, sc.Err()
}
