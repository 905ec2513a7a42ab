package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tiliavir/study-time-tracker/internal/model"
)

// sentinel is the local file that holds the date of the last successful
// automatic backup, as a single YYYY-MM-DD line.
type sentinel struct {
	path string
}

// read returns the stored date. A missing, empty or malformed file reads as
// "never backed up".
func (s sentinel) read() (string, bool) {
	if s.path == "" {
		return "", false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(string(data))
	if _, err := time.Parse(model.DateLayout, line); err != nil {
		return "", false
	}
	return line, true
}

// write replaces the stored date atomically.
func (s sentinel) write(day string) error {
	if s.path == "" {
		return errors.New("no sentinel path configured")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating sentinel directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(day+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing sentinel: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing sentinel: %w", err)
	}
	return nil
}
