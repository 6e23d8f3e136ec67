package stash

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/fileutil"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
	"github.com/CJohnsonADAH/adpn-cli/internal/overlay"
)

// Version is the envelope marker written into every stash plaintext. A
// decrypt that does not carry it was produced by an incompatible writer and
// is treated as an access failure, never silently re-parsed.
const Version = "1.0"

// Session is an open stash: one encrypted backing file plus its in-memory
// access key. Cached reports whether Open reused a prior session instead of
// creating a fresh one.
type Session struct {
	ID     string
	File   string
	Cached bool

	key      []byte
	ownsFile bool
	sealer   Sealer
	logger   *slog.Logger
}

// OpenOptions controls session creation and reuse.
type OpenOptions struct {
	// File and Key identify a prior session to reuse (typically recovered
	// from the caller's environment).
	File string
	Key  string
	// IfNeeded reuses the prior session when it is still valid instead of
	// creating a new one.
	IfNeeded bool
	// Keep disables removal of a freshly created backing file at session
	// close.
	Keep bool
	// Dir is where fresh backing files are created; defaults to the system
	// temp directory.
	Dir string

	Sealer Sealer
	Logger *slog.Logger
}

// Open establishes a stash session. With IfNeeded set and a valid prior
// session (file exists and the key opens it), that session is reused and the
// stash is tagged cached:1. Otherwise a fresh empty encrypted file and a
// fresh access key are created; unless Keep is set the new file is removed by
// Close.
func Open(opts OpenOptions) (*Session, error) {
	sealer := opts.Sealer
	if sealer == nil {
		sealer = NewSealer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "stash")

	if opts.IfNeeded && opts.File != "" && opts.Key != "" {
		session, err := reuse(opts, sealer, logger)
		if err == nil {
			// Only explicit reuse marks the stash; Resume stays read-only.
			err = session.Post("cached", "1")
		}
		if err == nil {
			return session, nil
		}
		logger.Debug("prior session not reusable, creating fresh stash", logging.Error(err))
	}

	return create(opts, sealer, logger)
}

// Resume reopens an existing session from its file and key without ever
// creating a fresh stash; a session handed down through the environment
// either opens or the caller proceeds without one.
func Resume(file, key string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	return reuse(OpenOptions{File: file, Key: key}, NewSealer(), logging.NewComponentLogger(logger, "stash"))
}

func reuse(opts OpenOptions, sealer Sealer, logger *slog.Logger) (*Session, error) {
	key, err := DecodeKey(opts.Key)
	if err != nil {
		return nil, err
	}
	session := &Session{
		ID:     uuid.NewString(),
		File:   opts.File,
		Cached: true,
		key:    key,
		sealer: sealer,
		logger: logger,
	}
	if _, err := session.read(); err != nil {
		return nil, err
	}
	logger.Debug("reused stash session", slog.String("file", session.File))
	return session, nil
}

func create(opts OpenOptions, sealer Sealer, logger *slog.Logger) (*Session, error) {
	dir := opts.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	file, err := os.CreateTemp(dir, "adpn-stash-*.dat")
	if err != nil {
		return nil, fmt.Errorf("create stash file: %w", err)
	}
	path := file.Name()
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close stash file: %w", err)
	}

	key, err := NewAccessKey()
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	session := &Session{
		ID:       uuid.NewString(),
		File:     path,
		key:      key,
		ownsFile: !opts.Keep,
		sealer:   sealer,
		logger:   logger,
	}
	if err := session.write(overlay.Object{}); err != nil {
		os.Remove(path)
		return nil, err
	}
	logger.Debug("created stash session", slog.String("file", path), slog.Bool("keep", opts.Keep))
	return session, nil
}

// Key returns the textual access-key form for session handoff.
func (s *Session) Key() string {
	return EncodeKey(s.key)
}

// OwnsFile reports whether Close will remove the backing file.
func (s *Session) OwnsFile() bool {
	return s.ownsFile
}

// Get decrypts the stash and projects out a dot-path key. A missing or
// corrupt backing file degrades to NotFound rather than crashing; a wrong
// access key is AccessDenied.
func (s *Session) Get(key string) (string, error) {
	content, err := s.read()
	if err != nil {
		if errors.Is(err, adpnerr.ErrAccessDenied) {
			return "", err
		}
		return "", adpnerr.Wrap(adpnerr.ErrNotFound, "stash", "get", key, nil)
	}
	value, ok := content.GetString(key)
	if !ok {
		return "", adpnerr.Wrap(adpnerr.ErrNotFound, "stash", "get", key, nil)
	}
	return value, nil
}

// Content returns the full decrypted stash object. Missing or corrupt files
// yield an empty object.
func (s *Session) Content() (overlay.Object, error) {
	content, err := s.read()
	if err != nil {
		if errors.Is(err, adpnerr.ErrAccessDenied) {
			return nil, err
		}
		return overlay.Object{}, nil
	}
	return content, nil
}

// Put overlays fragment (a JSON object) on top of the current stash content
// and atomically replaces the backing file. The read-merge-write runs under
// an advisory lock so concurrent puts serialize; the last writer wins.
func (s *Session) Put(fragment string) error {
	return fileutil.WithLock(s.File, func() error {
		current, err := s.read()
		if err != nil {
			if errors.Is(err, adpnerr.ErrAccessDenied) {
				return err
			}
			current = overlay.Object{}
		}
		base, err := current.EncodeCompact()
		if err != nil {
			return err
		}
		merged, err := overlay.Merge([]string{base, fragment})
		if err != nil {
			return err
		}
		return s.write(merged)
	})
}

// Post stores a single key-value pair; sugar for Put of a one-key fragment.
func (s *Session) Post(key, value string) error {
	fragment, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	return s.Put(string(fragment))
}

// Close tears the session down. When ifNeeded is set, the backing file is
// only removed if this session created it; a reused session's file is left
// for its originating process. An unconditional Close always removes the
// file. Missing files are not an error.
func (s *Session) Close(ifNeeded bool) error {
	if ifNeeded && !s.ownsFile {
		return nil
	}
	os.Remove(s.File + ".lock")
	if err := os.Remove(s.File); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stash file: %w", err)
	}
	s.logger.Debug("closed stash session", slog.String("file", s.File))
	return nil
}

func (s *Session) read() (overlay.Object, error) {
	ciphertext, err := os.ReadFile(s.File)
	if err != nil {
		return nil, adpnerr.Wrap(adpnerr.ErrNotFound, "stash", "read", s.File, err)
	}
	plaintext, err := s.sealer.Open(ciphertext, s.key)
	if err != nil {
		if errors.Is(err, errWrongKey) {
			return nil, adpnerr.Wrap(adpnerr.ErrAccessDenied, "stash", "read", s.File, err)
		}
		return nil, adpnerr.Wrap(adpnerr.ErrParse, "stash", "read", s.File, err)
	}
	body, err := stripEnvelope(string(plaintext))
	if err != nil {
		return nil, adpnerr.Wrap(adpnerr.ErrAccessDenied, "stash", "read", s.File, err)
	}
	content, err := overlay.Merge([]string{body})
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (s *Session) write(content overlay.Object) error {
	body, err := content.EncodeCompact()
	if err != nil {
		return err
	}
	plaintext := wrapEnvelope(body)
	ciphertext, err := s.sealer.Seal([]byte(plaintext), s.key)
	if err != nil {
		return fmt.Errorf("encrypt stash: %w", err)
	}
	return fileutil.WriteAtomic(s.File, ciphertext, 0o600)
}

// wrapEnvelope frames the JSON body with MIME-style headers so a decrypt
// under the wrong writer version is detectable.
func wrapEnvelope(body string) string {
	return strings.Join([]string{
		"MIME-Version: 1.0",
		"ADPN-Stash: " + Version,
		"Content-Type: application/json",
		"",
		body,
	}, "\r\n")
}

func stripEnvelope(text string) (string, error) {
	heads, body, found := strings.Cut(text, "\r\n\r\n")
	if !found {
		return "", errors.New("no envelope headers in decrypted stash")
	}
	for _, header := range strings.Split(heads, "\r\n") {
		name, value, ok := strings.Cut(header, ": ")
		if ok && name == "ADPN-Stash" {
			if value != Version {
				return "", fmt.Errorf("stash version %q, want %q", value, Version)
			}
			return body, nil
		}
	}
	return "", errors.New("no stash version header in decrypts")
}
