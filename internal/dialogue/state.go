// Package dialogue implements the multi-turn phone advisor conversation:
// constraint accumulation, follow-up questions, the confirmation gate and
// the decision to search.
package dialogue

import (
	"github.com/kalambet/phoneadvisor/internal/catalog"
	"github.com/kalambet/phoneadvisor/internal/filter"
)

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Phase is the conversational position of a session.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseGathering            Phase = "gathering"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseSearching            Phase = "searching"
)

// State is the per-session dialogue value. Transitions never modify the
// receiver; they return a new State.
type State struct {
	Constraints          filter.Constraints `json:"constraints"`
	AwaitingConfirmation bool               `json:"awaiting_confirmation"`
	Results              []catalog.Row      `json:"-"`
	Transcript           []Message          `json:"transcript"`
}

// NewState returns a fresh session state opened with the advisor greeting.
func NewState() State {
	return State{
		Constraints: filter.Constraints{},
		Transcript:  []Message{{Role: RoleAssistant, Text: openingMessage}},
	}
}

// Phase derives the current phase from the accumulated constraints and
// the confirmation flag.
func (s State) Phase() Phase {
	switch {
	case s.AwaitingConfirmation:
		return PhaseAwaitingConfirmation
	case len(s.Constraints) == 0:
		return PhaseIdle
	default:
		return PhaseGathering
	}
}

// CompleteSearch records the outcome of a search: it stores results in the
// result buffer, appends the search notices to the transcript, and clears
// the accumulated constraints and the confirmation flag.
func (s State) CompleteSearch(results []catalog.Row) State {
	next := s.clone()
	next.Results = results
	next.Transcript = append(next.Transcript, Message{Role: RoleAssistant, Text: searchingNotice})
	if len(results) == 0 {
		next.Transcript = append(next.Transcript, Message{Role: RoleAssistant, Text: noMatchesNotice})
	}
	next.Constraints = filter.Constraints{}
	next.AwaitingConfirmation = false
	return next
}

// TakeResults returns the buffered results and a state with the buffer cleared.
func (s State) TakeResults() ([]catalog.Row, State) {
	next := s.clone()
	results := next.Results
	next.Results = nil
	return results, next
}

// Reset discards everything and starts over.
func (s State) Reset() State {
	return NewState()
}

func (s State) clone() State {
	next := State{
		Constraints:          s.Constraints.Clone(),
		AwaitingConfirmation: s.AwaitingConfirmation,
		Results:              s.Results,
		Transcript:           make([]Message, len(s.Transcript), len(s.Transcript)+3),
	}
	copy(next.Transcript, s.Transcript)
	return next
}

func (s *State) say(role Role, text string) {
	s.Transcript = append(s.Transcript, Message{Role: role, Text: text})
}

// dropPendingPrompt removes a trailing confirmation prompt so the
// transcript does not repeat it once the user has answered.
func (s *State) dropPendingPrompt() {
	n := len(s.Transcript)
	if n == 0 {
		return
	}
	last := s.Transcript[n-1]
	if last.Role == RoleAssistant && isConfirmationPrompt(last.Text) {
		s.Transcript = s.Transcript[:n-1]
	}
}
