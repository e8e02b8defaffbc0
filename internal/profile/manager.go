package profile

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a patient has no profile yet.
var ErrNotFound = errors.New("profile not found")

// Store defines the write-through persistence the Manager needs.
// Implemented by storage.Store. Load* methods hydrate memory at
// startup; the rest mirror in-memory mutations to disk.
type Store interface {
	SaveReaderProfile(p ReaderProfile) error
	LoadReaderProfile() (ReaderProfile, bool, error)
	SavePatient(p PatientProfile) error
	LoadPatients() ([]PatientProfile, error)
	AppendCompletion(patientID string, c CompletionRecord) error
	LoadCompletions() (map[string][]CompletionRecord, error)
	AppendGuidanceSession(g GuidanceRecord) error
	LoadGuidanceSessions() (map[string][]GuidanceRecord, error)
	AppendFormAdaptation(a FormAdaptation) error
	CountFormAdaptations() (int, error)
}

// readerKey is the lock key for the singleton reader profile.
const readerKey = "reader"

const lockStripes = 32

// Manager is the concurrency-safe keyed state store. Read-modify-write
// cycles on a profile run under that profile's stripe lock, so two
// concurrent updates of the same key never lose writes; the inner
// RWMutex only guards map access. All accessors return copies.
type Manager struct {
	store Store
	clock Clock

	locks [lockStripes]sync.Mutex

	mu          sync.RWMutex
	reader      ReaderProfile
	patients    map[string]PatientProfile
	completions map[string][]CompletionRecord
	guidance    map[string][]GuidanceRecord
	adaptations int
}

// NewManager creates a Manager backed by store. A nil store keeps all
// state in memory only.
func NewManager(store Store) *Manager {
	return NewManagerWithClock(store, SystemClock())
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store Store, clock Clock) *Manager {
	return &Manager{
		store:       store,
		clock:       clock,
		reader:      DefaultReaderProfile(),
		patients:    make(map[string]PatientProfile),
		completions: make(map[string][]CompletionRecord),
		guidance:    make(map[string][]GuidanceRecord),
	}
}

// Load hydrates in-memory state from the store. Call once at startup,
// before the Manager is shared.
func (m *Manager) Load() error {
	if m.store == nil {
		return nil
	}

	reader, ok, err := m.store.LoadReaderProfile()
	if err != nil {
		return fmt.Errorf("loading reader profile: %w", err)
	}
	patients, err := m.store.LoadPatients()
	if err != nil {
		return fmt.Errorf("loading patients: %w", err)
	}
	completions, err := m.store.LoadCompletions()
	if err != nil {
		return fmt.Errorf("loading completions: %w", err)
	}
	guidance, err := m.store.LoadGuidanceSessions()
	if err != nil {
		return fmt.Errorf("loading guidance sessions: %w", err)
	}
	adaptations, err := m.store.CountFormAdaptations()
	if err != nil {
		return fmt.Errorf("counting form adaptations: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.reader = reader
	}
	for _, p := range patients {
		m.patients[p.PatientID] = p
	}
	for id, recs := range completions {
		m.completions[id] = recs
	}
	for id, recs := range guidance {
		m.guidance[id] = recs
	}
	m.adaptations = adaptations
	return nil
}

// lockFor returns the stripe lock guarding key.
func (m *Manager) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &m.locks[h.Sum32()%lockStripes]
}

func (m *Manager) timestamp() string {
	return m.clock.Now().Format(time.RFC3339)
}

// Reader returns a copy of the current reader profile.
func (m *Manager) Reader() ReaderProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyReader(m.reader)
}

// UpdateReader applies fn to the reader profile under its key lock and
// persists the result. Returns the updated profile.
func (m *Manager) UpdateReader(fn func(*ReaderProfile)) (ReaderProfile, error) {
	lock := m.lockFor(readerKey)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	p := copyReader(m.reader)
	m.mu.RUnlock()

	fn(&p)
	sort.Strings(p.LearnedTerms)

	m.mu.Lock()
	m.reader = p
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveReaderProfile(p); err != nil {
			return p, fmt.Errorf("persisting reader profile: %w", err)
		}
	}
	return copyReader(p), nil
}

// Patient returns a copy of one patient profile, or ErrNotFound.
func (m *Manager) Patient(id string) (PatientProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return PatientProfile{}, ErrNotFound
	}
	return copyPatient(p), nil
}

// PutPatient creates or replaces a patient profile and persists it.
func (m *Manager) PutPatient(p PatientProfile) error {
	lock := m.lockFor(p.PatientID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	m.patients[p.PatientID] = copyPatient(p)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SavePatient(p); err != nil {
			return fmt.Errorf("persisting patient %s: %w", p.PatientID, err)
		}
	}
	return nil
}

// UpdatePatient applies fn to an existing patient profile under its key
// lock and persists the result. Returns ErrNotFound for unknown IDs.
func (m *Manager) UpdatePatient(id string, fn func(*PatientProfile)) (PatientProfile, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	p, ok := m.patients[id]
	if ok {
		p = copyPatient(p)
	}
	m.mu.RUnlock()
	if !ok {
		return PatientProfile{}, ErrNotFound
	}

	fn(&p)

	m.mu.Lock()
	m.patients[id] = copyPatient(p)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SavePatient(p); err != nil {
			return p, fmt.Errorf("persisting patient %s: %w", id, err)
		}
	}
	return p, nil
}

// Patients returns copies of all patient profiles, sorted by ID.
func (m *Manager) Patients() []PatientProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PatientProfile, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, copyPatient(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out
}

// PatientCount returns the number of profiled patients.
func (m *Manager) PatientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patients)
}

// AddCompletion appends a completion record for a patient and persists
// it. An empty timestamp is filled from the clock.
func (m *Manager) AddCompletion(patientID string, c CompletionRecord) error {
	if c.Timestamp == "" {
		c.Timestamp = m.timestamp()
	}

	lock := m.lockFor(patientID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	m.completions[patientID] = append(m.completions[patientID], c)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.AppendCompletion(patientID, c); err != nil {
			return fmt.Errorf("persisting completion for %s: %w", patientID, err)
		}
	}
	return nil
}

// Completions returns a copy of a patient's completion records in
// arrival order.
func (m *Manager) Completions(patientID string) []CompletionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.completions[patientID]
	out := make([]CompletionRecord, len(recs))
	copy(out, recs)
	return out
}

// AddGuidance appends a guidance record to a patient's history and
// persists it. An empty LastUpdated is filled from the clock.
func (m *Manager) AddGuidance(g GuidanceRecord) error {
	if g.LastUpdated == "" {
		g.LastUpdated = m.timestamp()
	}

	lock := m.lockFor(g.PatientID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	m.guidance[g.PatientID] = append(m.guidance[g.PatientID], g)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.AppendGuidanceSession(g); err != nil {
			return fmt.Errorf("persisting guidance for %s: %w", g.PatientID, err)
		}
	}
	return nil
}

// Guidance returns a copy of a patient's guidance history.
func (m *Manager) Guidance(patientID string) []GuidanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.guidance[patientID]
	out := make([]GuidanceRecord, len(recs))
	copy(out, recs)
	return out
}

// GuidanceSessionCount returns the total number of guidance records
// across all patients.
func (m *Manager) GuidanceSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, recs := range m.guidance {
		total += len(recs)
	}
	return total
}

// RecordFormAdaptation persists one applied form adaptation and bumps
// the counter reported in analytics. An empty CreatedAt is filled from
// the clock.
func (m *Manager) RecordFormAdaptation(a FormAdaptation) error {
	if a.CreatedAt == "" {
		a.CreatedAt = m.timestamp()
	}

	lock := m.lockFor(a.PatientID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	m.adaptations++
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.AppendFormAdaptation(a); err != nil {
			return fmt.Errorf("persisting form adaptation for %s: %w", a.PatientID, err)
		}
	}
	return nil
}

// FormAdaptationCount returns how many form adaptations were applied.
func (m *Manager) FormAdaptationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adaptations
}

// copyStrings duplicates a slice, keeping nil and empty distinct so
// JSON output is stable.
func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func copyReader(p ReaderProfile) ReaderProfile {
	cp := p
	cp.PreferredAdaptations = copyStrings(p.PreferredAdaptations)
	cp.LearnedTerms = copyStrings(p.LearnedTerms)
	return cp
}

func copyPatient(p PatientProfile) PatientProfile {
	cp := p
	cp.AccessibilityNeeds = copyStrings(p.AccessibilityNeeds)
	if p.FormPatterns != nil {
		cp.FormPatterns = make([]FormPattern, len(p.FormPatterns))
		copy(cp.FormPatterns, p.FormPatterns)
	}
	return cp
}
