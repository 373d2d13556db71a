// Package config holds the persisted tool configuration: interpreter and
// installer paths and the verbose flag.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

const (
	// EnvConfigPath overrides the configuration file location.
	EnvConfigPath = "COMMENTSTRIP_CONFIG"

	// FileName is the configuration file name under the user config directory.
	FileName = "config.toml"

	// DefaultInterpreter is substituted when no interpreter path is configured.
	DefaultInterpreter = "python"

	// DefaultInstaller is substituted when no installer path is configured.
	DefaultInstaller = "pip"
)

// Tool is the persisted configuration. Empty paths mean "use the platform default".
// Paths are not checked here; a bad path surfaces when a process launch is attempted.
type Tool struct {
	InterpreterPath string `toml:"interpreter_path,omitempty"`
	InstallerPath   string `toml:"installer_path,omitempty"`
	Verbose         bool   `toml:"verbose"`
}

// Defaults returns the configuration used when nothing has been persisted.
func Defaults() Tool {
	return Tool{Verbose: true}
}

// Interpreter returns the configured interpreter or DefaultInterpreter.
func (t Tool) Interpreter() string {
	if t.InterpreterPath == "" {
		return DefaultInterpreter
	}
	return t.InterpreterPath
}

// Installer returns the configured installer or DefaultInstaller.
func (t Tool) Installer() string {
	if t.InstallerPath == "" {
		return DefaultInstaller
	}
	return t.InstallerPath
}

// Update carries a full replacement of every configurable field.
type Update struct {
	InterpreterPath string
	InstallerPath   string
	Verbose         bool
}

// DefaultPath resolves the configuration file location.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "commentstrip", FileName), nil
}

// Store owns the configuration and its backing file.
type Store struct {
	path string

	mu      sync.RWMutex
	current Tool
}

// Load reads the configuration at path. A missing file yields Defaults.
func Load(path string) (*Store, error) {
	s := &Store{path: path, current: Defaults()}

	data, err := os.ReadFile(path) // #nosec G304 - config path controlled by application
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Defaults()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	s.current = cfg

	return s, nil
}

// NewMemoryStore returns a Store that is never written to disk.
func NewMemoryStore(initial Tool) *Store {
	return &Store{current: initial}
}

// Path returns the backing file path, empty for memory stores.
func (s *Store) Path() string {
	return s.path
}

// Tool returns a snapshot of the current configuration.
func (s *Store) Tool() Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// InterpreterPath returns the configured interpreter path, possibly empty.
func (s *Store) InterpreterPath() string {
	return s.Tool().InterpreterPath
}

// InstallerPath returns the configured installer path, possibly empty.
func (s *Store) InstallerPath() string {
	return s.Tool().InstallerPath
}

// Verbose reports whether subprocess output is streamed to the build log.
func (s *Store) Verbose() bool {
	return s.Tool().Verbose
}

// Update replaces every field and persists before returning. On a failed
// write the in-memory configuration is left unchanged.
func (s *Store) Update(u Update) error {
	next := Tool{
		InterpreterPath: u.InterpreterPath,
		InstallerPath:   u.InstallerPath,
		Verbose:         u.Verbose,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := save(s.path, next); err != nil {
			return err
		}
	}
	s.current = next
	return nil
}

// save writes cfg atomically: a sibling temp file is renamed over path.
func save(path string, cfg Tool) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(buf.Bytes())
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write config file: %w", errors.Join(writeErr, closeErr))
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to update config file: %w", err)
	}
	return nil
}
