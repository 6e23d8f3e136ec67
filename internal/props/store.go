// Package props persists project settings as one JSON object file.
//
// Every mutating Set copies the current file to a single-generation backup
// (<file>~) before replacing it, and Undo swaps current and backup: a swap,
// not a history. Mutations are compare-and-swap replaces, so a concurrent
// writer is detected and retried against fresh content instead of silently
// overwritten.
package props

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/fileutil"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
	"github.com/CJohnsonADAH/adpn-cli/internal/overlay"
)

const setRetries = 3

// Store reads and mutates one JSON property file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore wraps the property file at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logging.NewComponentLogger(logger, "props"),
	}
}

// Path returns the property file location.
func (s *Store) Path() string { return s.path }

// BackupPath returns the single-generation backup location.
func (s *Store) BackupPath() string { return s.path + "~" }

// Get projects a dot-path key out of the property file. A missing file or
// missing key is NotFound.
func (s *Store) Get(key string) (string, error) {
	content, err := s.All()
	if err != nil {
		return "", err
	}
	value, ok := content.GetString(key)
	if !ok {
		return "", adpnerr.Wrap(adpnerr.ErrNotFound, "props", "get", key, nil)
	}
	return value, nil
}

// All returns the full property object; a missing file reads as empty.
func (s *Store) All() (overlay.Object, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return overlay.Object{}, nil
		}
		return nil, fmt.Errorf("read properties: %w", err)
	}
	content, err := overlay.Merge([]string{string(data)})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// Set assigns a dot-path key, creating intermediate objects as needed. The
// current file content is copied to the backup path first, then the file is
// replaced via compare-and-swap; on a lost race the mutation is retried
// against the fresh content.
func (s *Store) Set(key, value string) error {
	for attempt := 0; attempt < setRetries; attempt++ {
		prev, err := s.readRaw()
		if err != nil {
			return err
		}

		content := overlay.Object{}
		if prev != nil {
			if content, err = overlay.Merge([]string{string(prev)}); err != nil {
				return err
			}
		}
		if err := setPath(content, key, value); err != nil {
			return err
		}
		next, err := json.MarshalIndent(map[string]any(content), "", "  ")
		if err != nil {
			return fmt.Errorf("encode properties: %w", err)
		}
		next = append(next, '\n')

		if prev != nil {
			if err := fileutil.WriteAtomic(s.BackupPath(), prev, 0o644); err != nil {
				return fmt.Errorf("back up properties: %w", err)
			}
		}

		err = fileutil.ReplaceIfUnchanged(s.path, prev, next, 0o644)
		if err == nil {
			s.logger.Debug("set property", logging.String("key", key))
			return nil
		}
		if !errors.Is(err, fileutil.ErrChanged) {
			return err
		}
		s.logger.Debug("property file changed mid-set, retrying", logging.String("key", key))
	}
	return fmt.Errorf("set %s: %w", key, fileutil.ErrChanged)
}

// Undo swaps the current file and the backup. A second consecutive Undo
// swaps back; there is no deeper history. NotFound when either side is
// missing.
func (s *Store) Undo() error {
	return fileutil.WithLock(s.path, func() error {
		for _, path := range []string{s.path, s.BackupPath()} {
			if _, err := os.Stat(path); err != nil {
				return adpnerr.Wrap(adpnerr.ErrNotFound, "props", "undo", "nothing to undo", err)
			}
		}
		if err := fileutil.Swap(s.path, s.BackupPath()); err != nil {
			return err
		}
		s.logger.Debug("swapped properties with backup")
		return nil
	})
}

func (s *Store) readRaw() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read properties: %w", err)
	}
	return data, nil
}

func setPath(content overlay.Object, key, value string) error {
	segments := strings.Split(key, ".")
	table := map[string]any(content)
	for _, segment := range segments[:len(segments)-1] {
		next, ok := table[segment]
		if !ok {
			child := map[string]any{}
			table[segment] = child
			table = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("set %s: %q is not an object", key, segment)
		}
		table = child
	}
	table[segments[len(segments)-1]] = value
	return nil
}
