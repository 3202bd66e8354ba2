package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionLog appends a human-readable transcript of the session to a
// timestamped file. It is a pure observer: callers ignore its errors
// beyond logging them.
type SessionLog struct {
	path string
}

// NewSessionLog creates the log directory and a fresh transcript file.
func NewSessionLog(dir string) (*SessionLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("session_%s.txt", time.Now().Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating session log: %w", err)
	}
	f.Close()
	return &SessionLog{path: path}, nil
}

// Append writes one transcript line for the given role.
func (l *SessionLog) Append(role, text string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	var entry string
	if role == "player" {
		entry = fmt.Sprintf("player: %s -> ", text)
	} else {
		entry = fmt.Sprintf("[%s]: %s\n", role, text)
	}
	if _, err := f.WriteString(entry); err != nil {
		return err
	}
	return f.Sync()
}
