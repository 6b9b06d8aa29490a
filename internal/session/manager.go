// Package session keeps independent dialogue states for concurrent
// conversations and runs their searches against the shared catalog.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/kalambet/phoneadvisor/internal/catalog"
	"github.com/kalambet/phoneadvisor/internal/dialogue"
	"github.com/kalambet/phoneadvisor/internal/filter"
	"github.com/kalambet/phoneadvisor/internal/storage"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// HistoryStore records executed searches. Implemented by storage.Store.
type HistoryStore interface {
	SaveSearch(s storage.Search) error
}

// Options tunes session expiry. Zero values select the defaults.
type Options struct {
	// TTL is how long an untouched session is kept. Default 1h.
	TTL time.Duration
	// CleanupInterval is how often expired sessions are purged. Default
	// 10m; negative disables the background purge.
	CleanupInterval time.Duration
}

// Turn is the result of one user message.
type Turn struct {
	Reply        string             `json:"reply"`
	Phase        dialogue.Phase     `json:"phase"`
	ShouldSearch bool               `json:"should_search"`
	Constraints  filter.Constraints `json:"constraints,omitempty"`
	Results      []catalog.Row      `json:"results,omitempty"`
	SearchID     string             `json:"search_id,omitempty"`
}

// DirectResult is the outcome of a single-shot search without dialogue.
type DirectResult struct {
	Query       string             `json:"query"`
	Constraints filter.Constraints `json:"constraints"`
	Summary     []string           `json:"summary"`
	Results     []catalog.Row      `json:"results"`
	SearchID    string             `json:"search_id,omitempty"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID          string             `json:"id"`
	Phase       dialogue.Phase     `json:"phase"`
	Constraints filter.Constraints `json:"constraints"`
	Transcript  []dialogue.Message `json:"transcript"`
}

type entry struct {
	mu    sync.Mutex
	state dialogue.State
}

// Manager owns all live sessions. Turns within one session are serialized;
// different sessions proceed independently.
type Manager struct {
	catalog   *catalog.Catalog
	extractor *filter.Extractor
	machine   *dialogue.Machine
	history   HistoryStore
	sessions  *cache.Cache
	logger    *slog.Logger
}

// NewManager creates a Manager over cat. history may be nil, in which case
// searches are not recorded.
func NewManager(cat *catalog.Catalog, history HistoryStore, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = 10 * time.Minute
	}
	if opts.CleanupInterval < 0 {
		opts.CleanupInterval = 0
	}

	ex := filter.NewExtractor(cat.Brands())
	return &Manager{
		catalog:   cat,
		extractor: ex,
		machine:   dialogue.NewMachine(ex),
		history:   history,
		sessions:  cache.New(opts.TTL, opts.CleanupInterval),
		logger:    slog.Default(),
	}
}

// Create starts a new session and returns its id.
func (m *Manager) Create() string {
	id := uuid.New().String()
	m.sessions.Set(id, &entry{state: dialogue.NewState()}, cache.DefaultExpiration)
	m.logger.Debug("session created", "session_id", id)
	return id
}

// Count returns the number of live sessions, including expired ones that
// have not been purged yet.
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}

// Send processes one user message in session id. When the dialogue decides
// to search, the search runs before Send returns and its results are part
// of the Turn.
func (m *Manager) Send(ctx context.Context, id, text string) (Turn, error) {
	if err := ctx.Err(); err != nil {
		return Turn{}, err
	}
	e, err := m.get(id)
	if err != nil {
		return Turn{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	reply, next, search := m.machine.Advance(e.state, text)
	turn := Turn{Reply: reply, ShouldSearch: search}

	if search {
		constraints := next.Constraints.Clone()
		var results []catalog.Row
		results, next = next.CompleteSearch(filter.Apply(m.catalog.Rows(), constraints)).TakeResults()

		turn.Constraints = constraints
		turn.Results = results
		turn.SearchID = m.record(id, storage.ModeDialogue, text, constraints, len(results))
		m.logger.Info("dialogue search", "session_id", id, "constraints", constraints, "results", len(results))
	}

	e.state = next
	turn.Phase = next.Phase()
	// Refresh the TTL only if no Delete ran while the turn was in flight.
	if err := m.sessions.Replace(id, e, cache.DefaultExpiration); err != nil {
		m.logger.Debug("session deleted during turn", "session_id", id)
	}
	return turn, nil
}

// Snapshot returns the current view of session id.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	e, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	transcript := make([]dialogue.Message, len(e.state.Transcript))
	copy(transcript, e.state.Transcript)
	return Snapshot{
		ID:          id,
		Phase:       e.state.Phase(),
		Constraints: e.state.Constraints.Clone(),
		Transcript:  transcript,
	}, nil
}

// Transcript returns the messages exchanged so far in session id.
func (m *Manager) Transcript(id string) ([]dialogue.Message, error) {
	snap, err := m.Snapshot(id)
	if err != nil {
		return nil, err
	}
	return snap.Transcript, nil
}

// Reset clears constraints and transcript of session id, keeping the id.
func (m *Manager) Reset(id string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.state = e.state.Reset()
	e.mu.Unlock()
	if err := m.sessions.Replace(id, e, cache.DefaultExpiration); err != nil {
		return ErrSessionNotFound
	}
	return nil
}

// Delete ends session id.
func (m *Manager) Delete(id string) error {
	if _, err := m.get(id); err != nil {
		return err
	}
	m.sessions.Delete(id)
	m.logger.Debug("session deleted", "session_id", id)
	return nil
}

// DirectSearch extracts constraints from query and applies them in one
// step, outside any session. An empty constraint set matches the whole
// catalog.
func (m *Manager) DirectSearch(ctx context.Context, query string) (DirectResult, error) {
	if err := ctx.Err(); err != nil {
		return DirectResult{}, err
	}
	constraints := m.extractor.Extract(query)
	results := filter.Apply(m.catalog.Rows(), constraints)
	if results == nil {
		results = []catalog.Row{}
	}
	m.logger.Info("direct search", "query", query, "constraints", constraints, "results", len(results))
	return DirectResult{
		Query:       query,
		Constraints: constraints,
		Summary:     filter.Describe(constraints),
		Results:     results,
		SearchID:    m.record("", storage.ModeDirect, query, constraints, len(results)),
	}, nil
}

// Extract exposes the session extractor, which knows the catalog brands.
func (m *Manager) Extract(query string) filter.Constraints {
	return m.extractor.Extract(query)
}

func (m *Manager) get(id string) (*entry, error) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.(*entry), nil
}

// record stores a search in the history and returns its id. Failures are
// logged and yield an empty id; they never fail the search.
func (m *Manager) record(sessionID, mode, query string, c filter.Constraints, count int) string {
	if m.history == nil {
		return ""
	}
	raw, err := json.Marshal(c)
	if err != nil {
		m.logger.Warn("encoding search constraints", "error", err)
		return ""
	}
	s := storage.Search{
		ID:              uuid.New().String(),
		CreatedAt:       time.Now().UTC(),
		SessionID:       sessionID,
		Mode:            mode,
		Query:           query,
		ConstraintsJSON: string(raw),
		ResultCount:     count,
	}
	if err := m.history.SaveSearch(s); err != nil {
		m.logger.Warn("recording search", "mode", mode, "error", err)
		return ""
	}
	return s.ID
}
