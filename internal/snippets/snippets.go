// Package snippets stores named queries in a YAML file.
package snippets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned for an unknown snippet name.
var ErrNotFound = errors.New("snippet not found")

// Snippet is a saved query.
type Snippet struct {
	Name        string    `yaml:"name"`
	SQL         string    `yaml:"sql"`
	Description string    `yaml:"description,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

// File is the on-disk layout.
type File struct {
	Version  int       `yaml:"version"`
	Snippets []Snippet `yaml:"snippets"`
}

// Manager manages snippets with YAML persistence.
type Manager struct {
	snippets map[string]*Snippet
	filePath string
	mu       sync.RWMutex
}

// NewManager loads the snippets stored at path. A missing file is an empty
// collection; it is created on the first Save.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		return nil, errors.New("snippets path cannot be empty")
	}

	m := &Manager{
		snippets: make(map[string]*Snippet),
		filePath: path,
	}

	if err := m.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load snippets: %w", err)
	}

	return m, nil
}

// Path returns the backing file path.
func (m *Manager) Path() string {
	return m.filePath
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		return err
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse snippets file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snippets = make(map[string]*Snippet)
	for i := range file.Snippets {
		s := file.Snippets[i]
		m.snippets[s.Name] = &s
	}

	return nil
}

func (m *Manager) save() error {
	file := File{Version: 1, Snippets: m.List()}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal snippets: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(m.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snippets file: %w", err)
	}

	return nil
}

// ValidateName checks that name is non-empty and uses only letters,
// digits, dashes, underscores and dots.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("snippet name cannot be empty")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return fmt.Errorf("snippet name can only contain letters, numbers, dashes, underscores, and dots")
		}
	}
	return nil
}

// Save stores sql under name. It reports whether an existing snippet was
// overwritten.
func (m *Manager) Save(name, sql, description string) (overwritten bool, err error) {
	name = strings.TrimSpace(name)
	sql = strings.TrimSpace(sql)

	if err := ValidateName(name); err != nil {
		return false, err
	}
	if sql == "" {
		return false, fmt.Errorf("snippet SQL cannot be empty")
	}

	m.mu.Lock()
	now := time.Now()
	if existing, ok := m.snippets[name]; ok {
		existing.SQL = sql
		existing.Description = description
		existing.UpdatedAt = now
		overwritten = true
	} else {
		m.snippets[name] = &Snippet{
			Name:        name,
			SQL:         sql,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	m.mu.Unlock()

	if err := m.save(); err != nil {
		return false, err
	}
	return overwritten, nil
}

// Get returns a copy of the named snippet.
func (m *Manager) Get(name string) (*Snippet, error) {
	name = strings.TrimSpace(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snippets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	c := *s
	return &c, nil
}

// Exists reports whether name is saved.
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.snippets[name]
	return ok
}

// Delete removes the named snippet.
func (m *Manager) Delete(name string) error {
	name = strings.TrimSpace(name)

	m.mu.Lock()
	if _, ok := m.snippets[name]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(m.snippets, name)
	m.mu.Unlock()

	return m.save()
}

// List returns all snippets sorted by name.
func (m *Manager) List() []Snippet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snippet, 0, len(m.snippets))
	for _, s := range m.snippets {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Search matches query against name, SQL and description, case-insensitively.
func (m *Manager) Search(query string) []Snippet {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return m.List()
	}

	var results []Snippet
	for _, s := range m.List() {
		if strings.Contains(strings.ToLower(s.Name), query) ||
			strings.Contains(strings.ToLower(s.SQL), query) ||
			strings.Contains(strings.ToLower(s.Description), query) {
			results = append(results, s)
		}
	}
	return results
}

// Count returns the number of snippets.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snippets)
}
