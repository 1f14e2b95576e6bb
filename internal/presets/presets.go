// Package presets implements the on-disk JSON store of named effect
// presets: sanitized ids, a protection flag guarding the seeded defaults,
// and atomic (temp-then-rename) persistence.
package presets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rgbcct/panelfx/internal/apperr"
	"github.com/rgbcct/panelfx/internal/effects"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
)

// storeVersion is stamped into the persisted file's "version" field.
const storeVersion = "1.0"

// idPattern is the sanitized-id invariant from spec.md's data model.
var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Preset is one named, persisted effect configuration.
type Preset struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Effect      string            `json:"effect"`
	Topology    grid.TopologyMode `json:"topology"`
	Params      effects.Params    `json:"params"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	IsProtected bool              `json:"isProtected"`
}

type fileFormat struct {
	Version string   `json:"version"`
	Presets []Preset `json:"presets"`
}

// Manager owns the in-memory preset map and its on-disk file.
type Manager struct {
	mu   sync.RWMutex
	path string
	byID map[string]Preset
	log  logger.Logger
	now  func() time.Time
}

// New creates a manager bound to path, without loading it (call Load).
func New(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Manager{
		path: path,
		byID: make(map[string]Preset),
		log:  log,
		now:  time.Now,
	}
}

// Sanitize turns an arbitrary string into a valid preset id: lowercase,
// whitespace runs become "-", characters outside [a-z0-9-] are stripped,
// consecutive "-" collapse, leading/trailing "-" are trimmed.
func Sanitize(s string) string {
	s = strings.ToLower(s)
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = invalidChars.ReplaceAllString(s, "")
	s = dashRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return s
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	invalidChars  = regexp.MustCompile(`[^a-z0-9-]`)
	dashRun       = regexp.MustCompile(`-+`)
)

// Load reads the backing file. If it's missing or unreadable, the seven
// protected defaults are seeded and immediately persisted (spec.md §4.7).
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		m.log.Warn("preset store %s unreadable (%v); seeding defaults", m.path, err)
		m.seedDefaults()
		return m.save()
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		m.log.Warn("preset store %s malformed (%v); seeding defaults", m.path, err)
		m.seedDefaults()
		return m.save()
	}

	m.mu.Lock()
	m.byID = make(map[string]Preset, len(ff.Presets))
	for _, p := range ff.Presets {
		m.byID[p.ID] = p
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) seedDefaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = make(map[string]Preset, len(defaultPresets))
	now := m.now()
	for _, p := range defaultPresets {
		p.CreatedAt = now
		p.UpdatedAt = now
		p.IsProtected = true
		m.byID[p.ID] = p
	}
}

// Get returns a snapshot of one preset.
func (m *Manager) Get(id string) (Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return Preset{}, apperr.New(apperr.NotFound, "effect preset %q not found", id)
	}
	return p, nil
}

// GetAll returns a snapshot of every preset.
func (m *Manager) GetAll() []Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Preset, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out
}

// Create sanitizes p.ID (falling back to the sanitized p.Name when the id
// sanitizes to nothing), rejects empty/colliding ids, stamps timestamps, and
// persists.
func (m *Manager) Create(p Preset) (Preset, error) {
	id := Sanitize(p.ID)
	if id == "" {
		id = Sanitize(p.Name)
	}
	if id == "" || !idPattern.MatchString(id) {
		return Preset{}, apperr.New(apperr.InvalidParam, "preset id sanitizes to empty string")
	}

	m.mu.Lock()
	if _, exists := m.byID[id]; exists {
		m.mu.Unlock()
		return Preset{}, apperr.New(apperr.Conflict, "preset id %q already exists", id)
	}
	now := m.now()
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsProtected = false
	m.byID[id] = p
	m.mu.Unlock()

	if err := m.save(); err != nil {
		m.mu.Lock()
		delete(m.byID, id)
		m.mu.Unlock()
		return Preset{}, err
	}
	return p, nil
}

// Patch is a partial update; id, isProtected and createdAt are never
// applied even if set, per spec.md §4.7.
type Patch struct {
	Name     *string
	Effect   *string
	Topology *grid.TopologyMode
	Params   effects.Params
}

// Update applies patch to an existing, non-protected preset.
func (m *Manager) Update(id string, patch Patch) (Preset, error) {
	m.mu.Lock()
	p, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return Preset{}, apperr.New(apperr.NotFound, "effect preset %q not found", id)
	}
	if p.IsProtected {
		m.mu.Unlock()
		return Preset{}, apperr.New(apperr.Protected, "preset %q is protected", id)
	}

	prior := p
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Effect != nil {
		p.Effect = *patch.Effect
	}
	if patch.Topology != nil {
		p.Topology = *patch.Topology
	}
	if patch.Params != nil {
		p.Params = patch.Params
	}
	p.UpdatedAt = m.now()
	m.byID[id] = p
	m.mu.Unlock()

	if err := m.save(); err != nil {
		m.mu.Lock()
		m.byID[id] = prior
		m.mu.Unlock()
		return Preset{}, err
	}
	return p, nil
}

// Delete removes a non-protected preset.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	p, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return apperr.New(apperr.NotFound, "effect preset %q not found", id)
	}
	if p.IsProtected {
		m.mu.Unlock()
		return apperr.New(apperr.Protected, "preset %q is protected", id)
	}
	delete(m.byID, id)
	m.mu.Unlock()

	if err := m.save(); err != nil {
		m.mu.Lock()
		m.byID[id] = p
		m.mu.Unlock()
		return err
	}
	return nil
}

// save writes the whole in-memory set as pretty JSON, via a temp file plus
// rename so the on-disk file is always a valid snapshot of some committed
// state.
func (m *Manager) save() error {
	m.mu.RLock()
	ff := fileFormat{Version: storeVersion, Presets: make([]Preset, 0, len(m.byID))}
	for _, p := range m.byID {
		ff.Presets = append(ff.Presets, p)
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.IO, err, "marshal preset store")
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.Wrap(apperr.IO, err, "create preset store directory %s", dir)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(m.path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return apperr.Wrap(apperr.IO, err, "write temp preset file")
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return apperr.Wrap(apperr.IO, err, "rename preset file into place")
	}
	return nil
}
