package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/errs"
	"github.com/ognistik/macrowhisper-go/internal/fswatch"
	"github.com/ognistik/macrowhisper-go/internal/logging"
)

// Reason identifies why subscribers are being notified of a config change,
// per spec §4.A.
type Reason int

const (
	ReasonGeneric Reason = iota
	ReasonWatchPathChanged
)

// Store owns the live configuration document: load/save/validate, live
// reload via a filesystem watch, and self-write suppression so the
// daemon's own saves never bounce back as a spurious reload. Every mutation
// goes through Mutate, which the coordinator serializes on the event lane
// per spec §5 — Store itself only guards the in-memory value with a mutex
// so concurrent readers (status, getAction) never race a reload.
type Store struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
	log  *logging.Logger

	subMu       sync.Mutex
	subscribers []func(Reason)

	suppressNext atomic.Bool
	watcher      *fswatch.Watcher
	hadParseErr  atomic.Bool
}

// Open loads the configuration at path (writing defaults if the file is
// absent), then starts watching it for external edits. Per spec §4.A, a
// malformed file on first load leaves the built-in defaults in memory and
// is reported through the returned error without being overwritten.
func Open(path string, log *logging.Logger) (*Store, error) {
	s := &Store{path: path, log: log}

	cfg, loadErr := loadFile(path)
	if loadErr != nil {
		if os.IsNotExist(errCause(loadErr)) {
			cfg = Default()
			if err := writeFile(path, cfg); err != nil {
				return nil, errs.Wrap(errs.Fatal, err, "writing initial config")
			}
		} else {
			// ConfigParseError: keep defaults in memory, do not overwrite.
			log.Error("config file is malformed, using in-memory defaults", zap.String("path", path), zap.Error(loadErr))
			cfg = Default()
			s.hadParseErr.Store(true)
		}
	}
	cfg.Defaults.Watch = ExpandTilde(cfg.Defaults.Watch)
	s.cfg = cfg

	watcher, err := fswatch.New(path, s.onFileChanged, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Watch, err, "watching config file")
	}
	s.watcher = watcher

	return s, loadErr
}

// Close stops watching the configuration file.
func (s *Store) Close() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

// Reload forces an immediate re-read of the configuration file, bypassing
// the self-write-suppression flag, for the control socket's reloadConfig
// command (spec §4.H). A malformed file on disk leaves the in-memory
// configuration untouched and is reported through the returned error.
func (s *Store) Reload() error {
	cfg, err := loadFile(s.path)
	if err != nil {
		return errs.Wrap(errs.ConfigParse, err, "reloading config")
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	cfg.Defaults.Watch = ExpandTilde(cfg.Defaults.Watch)

	s.mu.Lock()
	oldWatch := s.cfg.Defaults.Watch
	s.cfg = cfg
	s.mu.Unlock()

	s.hadParseErr.Store(false)
	reason := ReasonGeneric
	if oldWatch != cfg.Defaults.Watch {
		reason = ReasonWatchPathChanged
	}
	s.notify(reason)
	return nil
}

// Current returns a deep copy of the current configuration so callers never
// observe a partially-mutated document and can't corrupt Store state by
// mutating the result.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.cfg)
}

// Subscribe registers a callback invoked after every successful mutation or
// reload, with the Reason that triggered it.
func (s *Store) Subscribe(cb func(Reason)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, cb)
}

func (s *Store) notify(reason Reason) {
	s.subMu.Lock()
	cbs := append([]func(Reason){}, s.subscribers...)
	s.subMu.Unlock()
	for _, cb := range cbs {
		cb(reason)
	}
}

// Mutate applies fn to a copy of the current configuration, validates the
// result, and — if it validates — saves it atomically and swaps it in.
// Callers on the event lane per spec §5; Mutate itself only needs to be
// safe against concurrent readers, which the mutex provides.
func (s *Store) Mutate(fn func(*Config) error) error {
	s.mu.Lock()
	candidate := deepCopy(s.cfg)
	if err := fn(candidate); err != nil {
		s.mu.Unlock()
		return err
	}
	candidate.Defaults.Watch = ExpandTilde(candidate.Defaults.Watch)
	if err := Validate(candidate); err != nil {
		s.mu.Unlock()
		return err
	}

	oldWatch := s.cfg.Defaults.Watch
	s.cfg = candidate
	s.mu.Unlock()

	s.suppressNext.Store(true)
	if err := writeFile(s.path, candidate); err != nil {
		s.log.Error("failed to save config", zap.Error(err))
		return errs.Wrap(errs.Generic, err, "saving config")
	}

	reason := ReasonGeneric
	if oldWatch != candidate.Defaults.Watch {
		reason = ReasonWatchPathChanged
	}
	s.notify(reason)
	return nil
}

// onFileChanged is the fswatch callback for external edits to the config
// file. It implements self-write suppression (spec §4.A): the first
// notification after our own save is swallowed.
func (s *Store) onFileChanged() {
	if s.suppressNext.CompareAndSwap(true, false) {
		return
	}

	cfg, err := loadFile(s.path)
	if err != nil {
		s.log.Error("external config edit is malformed, keeping prior config", zap.Error(err))
		s.hadParseErr.Store(true)
		return
	}
	if err := Validate(cfg); err != nil {
		s.log.Error("external config edit failed validation, keeping prior config", zap.Error(err))
		s.hadParseErr.Store(true)
		return
	}
	cfg.Defaults.Watch = ExpandTilde(cfg.Defaults.Watch)

	s.mu.Lock()
	oldWatch := s.cfg.Defaults.Watch
	s.cfg = cfg
	s.mu.Unlock()

	wasParseErr := s.hadParseErr.Swap(false)
	if wasParseErr {
		s.log.Info("config file now parses again, resuming live reload")
	}

	reason := ReasonGeneric
	if oldWatch != cfg.Defaults.Watch {
		reason = ReasonWatchPathChanged
	}
	s.notify(reason)
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.ConfigParse, err, "parsing config JSON")
	}
	return cfg, nil
}

// writeFile saves cfg atomically: a sibling temp file followed by a rename,
// per spec §4.A. Keys are sorted and slashes are not escaped, per spec §6.
func writeFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Re-decode into generic maps so every object's keys come out sorted;
	// struct fields would otherwise keep their declaration order.
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".macrowhisper-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func deepCopy(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		// Marshaling our own validated struct cannot fail; fall back to the
		// original value rather than panic.
		return cfg
	}
	out := Default()
	if err := json.Unmarshal(data, out); err != nil {
		return cfg
	}
	return out
}

// errCause unwraps a categorized config error down to the underlying cause,
// so os.IsNotExist can still recognize it.
func errCause(err error) error {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
