package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/tributai/tributai-migrate/internal/config"
)

const DefaultDir = "~/.tributai/locks"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PathFor returns the lock file guarding one destination database.
func PathFor(dir, host, database string) string {
	if dir == "" {
		dir = config.ExpandHome(DefaultDir)
	}
	name := unsafeChars.ReplaceAllString(strings.ToLower(host+"_"+database), "_")
	return filepath.Join(dir, "migrate-"+name+".lock")
}

// Acquire creates the lock file with the current process PID. A lock left
// behind by a process that is no longer running is taken over.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil {
				return fmt.Errorf("writing lock file: %w", werr)
			}
			return cerr
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("creating lock file: %w", err)
		}

		held, pid, err := IsHeld(path)
		if err != nil {
			return err
		}
		if held {
			return fmt.Errorf("another migration is writing to this destination (PID %d, lock %s)", pid, path)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing stale lock: %w", err)
		}
	}
	return fmt.Errorf("could not acquire lock %s", path)
}

// Release removes the lock file.
func Release(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// IsHeld checks if the lock is currently held by a running process.
func IsHeld(path string) (bool, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, 0, nil
		}
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, nil
	}
	return isProcessRunning(pid), pid, nil
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
