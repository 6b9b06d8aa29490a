package dialogue

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/kalambet/phoneadvisor/internal/filter"
)

var (
	affirmativeWords = []string{"yes", "yep", "confirm", "ok", "okay", "go ahead", "search", "find", "show me"}
	negativeWords    = []string{"no", "nope", "cancel", "change", "not"}
	searchCommands   = []string{"search", "find phones", "show me", "go", "results", "ok search", "what do you have"}
	greetingWords    = []string{"hi", "hello", "hey", "hii", "holla"}
	thanksWords      = []string{"thank you", "thanks"}
	helpWords        = []string{"help", "what can you do"}
)

// Extractor is the constraint parser the machine runs on every utterance.
type Extractor interface {
	Extract(utterance string) filter.Constraints
}

// Machine advances dialogue states. It holds no per-session data and can
// be shared by any number of sessions.
type Machine struct {
	extractor Extractor
}

// NewMachine creates a Machine that parses utterances with ex.
func NewMachine(ex Extractor) *Machine {
	return &Machine{extractor: ex}
}

// Advance processes one user utterance against s and returns the reply and
// the next state. s is left untouched. When search is true the caller runs
// the accumulated constraints against the catalog and then calls
// CompleteSearch on next.
func (m *Machine) Advance(s State, utterance string) (reply string, next State, search bool) {
	next = s.clone()
	text := normalize(utterance)
	extracted := m.extractor.Extract(utterance)

	if next.AwaitingConfirmation {
		switch {
		case containsAny(text, affirmativeWords):
			search = true
			next.AwaitingConfirmation = false
			next.dropPendingPrompt()
		case containsAny(text, negativeWords):
			next.AwaitingConfirmation = false
			next.dropPendingPrompt()
			reply = declinedReply
		}
	}

	next.say(RoleUser, utterance)
	next.Constraints = filter.Merge(next.Constraints, extracted)

	if !search && containsAny(text, searchCommands) {
		if len(next.Constraints) == 0 {
			next.say(RoleAssistant, needCriteria)
			return needCriteria, next, false
		}
		search = true
		next.AwaitingConfirmation = false
	}

	if search {
		slog.Debug("dialogue search triggered", "constraints", next.Constraints)
		return searchAcknowledgment(filter.Describe(next.Constraints)), next, true
	}

	if reply == "" {
		switch {
		case containsAny(text, greetingWords):
			reply = greetingReply
		case containsAny(text, thanksWords):
			reply = thanksReply
		case containsAny(text, helpWords):
			reply = helpReply
		case len(next.Constraints) == 0:
			reply = startPrompt
		default:
			reply = nextQuestion(&next)
		}
	}
	if reply == "" {
		reply = fallbackReply
	}

	next.say(RoleAssistant, reply)
	return reply, next, false
}

// nextQuestion asks for the most important missing detail, or proposes a
// search once enough has been gathered.
func nextQuestion(s *State) string {
	c := s.Constraints
	summary := filter.Describe(c)

	switch {
	case !c.Has(filter.PriceMin) && !c.Has(filter.PriceMax):
		return askBudget
	case !c.Has(filter.RAMMin):
		return askRAM
	case !c.Has(filter.StorageMin):
		return askStorage
	case !c.Has(filter.BatteryCapacity) && !c.Has(filter.KeywordBattery):
		return askBattery
	case !c.Has(filter.Brand) && len(summary) < 3:
		return askBrand
	}

	s.AwaitingConfirmation = true
	return confirmationPrompt(summary)
}

// normalize lower-cases text and collapses every run of non-alphanumeric
// characters to a single space, padded at both ends.
func normalize(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(fields, " ") + " "
}

// containsAny reports whether any phrase occurs in normalized text as
// whole words.
func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, " "+p+" ") {
			return true
		}
	}
	return false
}
