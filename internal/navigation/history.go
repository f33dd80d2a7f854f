package navigation

import (
	"encoding/json"
	"sync"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
)

// Entry is the state object pushed onto the browser history.
type Entry struct {
	View   domain.ViewID `json:"view"`
	Params *Params       `json:"params,omitempty"`
}

func NewEntry(view domain.ViewID, p Params) Entry {
	e := Entry{View: view}
	if !p.IsZero() {
		e.Params = &p
	}
	return e
}

// DecodeEntry parses a popstate payload. Anything that does not carry a
// known view decodes to nil, which the controller treats as "no state".
func DecodeEntry(raw json.RawMessage) *Entry {
	if len(raw) == 0 {
		return nil
	}
	var wire struct {
		View   json.RawMessage `json:"view"`
		Params *Params         `json:"params"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}
	view, err := ParseTarget(wire.View)
	if err != nil {
		return nil
	}
	return &Entry{View: view, Params: wire.Params}
}

// History is the platform history the controller pushes onto.
type History interface {
	Push(e Entry)
}

// Stack is an in-process History: a list of entries and a cursor, the way
// a browser keeps them. Pushing drops any forward entries.
type Stack struct {
	mu      sync.Mutex
	entries []Entry
	cursor  int
	pending []Entry
}

func NewStack() *Stack {
	return &Stack{cursor: -1}
}

func (s *Stack) Push(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries[:s.cursor+1], e)
	s.cursor = len(s.entries) - 1
	s.pending = append(s.pending, e)
}

// Back moves the cursor one entry back and returns the entry now current.
// ok is false when there is nothing to go back to; the returned entry is
// then nil, as a browser popstate for the initial page would be.
func (s *Stack) Back() (e *Entry, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < 0 {
		return nil, false
	}
	s.cursor--
	if s.cursor < 0 {
		return nil, true
	}
	cur := s.entries[s.cursor]
	return &cur, true
}

func (s *Stack) Forward() (e *Entry, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor+1 >= len(s.entries) {
		return nil, false
	}
	s.cursor++
	cur := s.entries[s.cursor]
	return &cur, true
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Current returns the entry under the cursor, nil before the first push.
func (s *Stack) Current() *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < 0 {
		return nil
	}
	cur := s.entries[s.cursor]
	return &cur
}

// Drain returns the entries pushed since the last Drain. The renderer
// replays them with history.pushState.
func (s *Stack) Drain() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}
