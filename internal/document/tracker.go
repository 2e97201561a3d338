package document

import (
	"sync"
	"time"
)

type State string

const (
	StateQueued    State = "queued"
	StateRendering State = "rendering"
	StateDone      State = "done"
	StateError     State = "error"
)

// Status is the observable state of one run's document generation.
type Status struct {
	State       State     `json:"state"`
	Progress    int       `json:"progress"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	File        string    `json:"file,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

// Tracker holds document generation status keyed by run id. One task owns one
// run id, so entries are effectively single-writer; the lock protects the map
// for concurrent pollers.
type Tracker struct {
	mu      sync.RWMutex
	byRunID map[string]Status
}

func NewTracker() *Tracker {
	return &Tracker{byRunID: make(map[string]Status)}
}

func (t *Tracker) Get(runID string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byRunID[runID]
	return s, ok
}

func (t *Tracker) set(runID string, s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byRunID[runID] = s
}

func (t *Tracker) queued(runID string, now time.Time) {
	t.set(runID, Status{State: StateQueued, StartedAt: now})
}

func (t *Tracker) rendering(runID string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.byRunID[runID]
	s.State = StateRendering
	s.Progress = progress
	t.byRunID[runID] = s
}

func (t *Tracker) done(runID, file string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.byRunID[runID]
	s.State = StateDone
	s.Progress = 100
	s.File = file
	s.FinishedAt = now
	t.byRunID[runID] = s
}

func (t *Tracker) failed(runID, detail string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.byRunID[runID]
	s.State = StateError
	s.ErrorDetail = detail
	s.FinishedAt = now
	t.byRunID[runID] = s
}
