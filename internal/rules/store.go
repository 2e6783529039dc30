package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ppiankov/tdscan/internal/model"
	"gopkg.in/yaml.v3"
)

var (
	// ErrStoreUnreadable means the overlay exists but cannot be read or decoded
	ErrStoreUnreadable = errors.New("rules store unreadable")
	// ErrRuleNotFound means no overlay rule carries the requested section
	ErrRuleNotFound = errors.New("rule not found")
)

// Store persists the user overlay on top of a fixed base library.
// A missing overlay file is a valid empty overlay.
type Store struct {
	path   string
	base   []model.Rule
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewStore creates a store for the overlay at path. base is copied.
func NewStore(path string, base []model.Rule, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	copied := make([]model.Rule, len(base))
	for i, r := range base {
		copied[i] = r.Clone()
	}
	return &Store{path: path, base: copied, logger: logger}
}

// Path returns the overlay file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the overlay rules
func (s *Store) Load() ([]model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

func (s *Store) load() ([]model.Rule, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStoreUnreadable, s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var overlay []model.Rule
	if s.isJSON() {
		err = json.Unmarshal(data, &overlay)
	} else {
		err = yaml.Unmarshal(data, &overlay)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrStoreUnreadable, s.path, err)
	}

	for i := range overlay {
		overlay[i].Custom = true
	}
	return overlay, nil
}

// Save replaces the overlay atomically
func (s *Store) Save(overlay []model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(overlay)
}

func (s *Store) save(overlay []model.Rule) error {
	if overlay == nil {
		overlay = []model.Rule{}
	}

	var (
		data []byte
		err  error
	)
	if s.isJSON() {
		data, err = json.MarshalIndent(overlay, "", "  ")
	} else {
		data, err = yaml.Marshal(overlay)
	}
	if err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create rules dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rules-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write overlay: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close overlay: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace overlay: %w", err)
	}

	s.logger.Debug("overlay saved", "path", s.path, "rules", len(overlay))
	return nil
}

// Upsert adds an overlay rule or replaces the one with the same section.
// It reports whether an existing rule was replaced.
func (s *Store) Upsert(rule model.Rule) (bool, error) {
	rule = normalize(rule.Clone())
	if err := Validate(rule, 0, SourceOverlay); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	overlay, err := s.load()
	if err != nil {
		return false, err
	}

	rule.Custom = true
	for i := range overlay {
		if overlay[i].Section == rule.Section {
			overlay[i] = rule
			return true, s.save(overlay)
		}
	}
	return false, s.save(append(overlay, rule))
}

// Update replaces an existing overlay rule; ErrRuleNotFound otherwise
func (s *Store) Update(rule model.Rule) error {
	rule = normalize(rule.Clone())
	if err := Validate(rule, 0, SourceOverlay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	overlay, err := s.load()
	if err != nil {
		return err
	}
	for i := range overlay {
		if overlay[i].Section == rule.Section {
			rule.Custom = true
			overlay[i] = rule
			return s.save(overlay)
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, rule.Section)
}

// Delete removes every overlay rule with the given section
func (s *Store) Delete(section string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overlay, err := s.load()
	if err != nil {
		return err
	}
	kept := overlay[:0]
	for _, r := range overlay {
		if r.Section != section {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(overlay) {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, section)
	}
	return s.save(kept)
}

// Get returns the first rule with the given section, overlay before base
func (s *Store) Get(section string) (model.Rule, error) {
	overlay, err := s.Load()
	if err != nil {
		return model.Rule{}, err
	}
	for _, r := range overlay {
		if r.Section == section {
			return r, nil
		}
	}
	for _, r := range s.base {
		if r.Section == section {
			return r.Clone(), nil
		}
	}
	return model.Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, section)
}

// Exists reports whether a section is defined in the overlay and in the base
func (s *Store) Exists(section string) (inOverlay, inBase bool, err error) {
	overlay, err := s.Load()
	if err != nil {
		return false, false, err
	}
	for _, r := range overlay {
		if r.Section == section {
			inOverlay = true
			break
		}
	}
	for _, r := range s.base {
		if r.Section == section {
			inBase = true
			break
		}
	}
	return inOverlay, inBase, nil
}

// All lists base rules followed by overlay rules, including disabled ones
func (s *Store) All() ([]model.Rule, error) {
	overlay, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]model.Rule, 0, len(s.base)+len(overlay))
	for _, r := range s.base {
		out = append(out, r.Clone())
	}
	return append(out, overlay...), nil
}

// Snapshot builds an independent RuleSet from the current store contents
func (s *Store) Snapshot() (*RuleSet, []model.Diagnostic, error) {
	overlay, err := s.Load()
	if err != nil {
		return nil, nil, err
	}
	rs, diags := Build(s.base, overlay)
	s.logger.Debug("rule set built", "active", rs.Len(), "overlay", len(overlay), "diagnostics", len(diags))
	return rs, diags, nil
}

func (s *Store) isJSON() bool {
	return strings.EqualFold(filepath.Ext(s.path), ".json")
}
