package clinic

import (
	"fmt"
	"time"
)

// Reputation bounds.
const (
	MinReputation = 0
	MaxReputation = 100
)

// maxLogEntries bounds the activity log kept on a session.
const maxLogEntries = 50

// LogEntry is one line of the session's activity log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Stats counts completed patient cycles.
type Stats struct {
	Treated   int `json:"treated"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// SessionState is everything one player's clinic holds. Money is never
// negative and reputation stays within [MinReputation, MaxReputation].
type SessionState struct {
	ID         string     `json:"id"`
	Money      int        `json:"money"`
	Reputation int        `json:"reputation"`
	Waiting    []*Case    `json:"waiting"`
	Current    *Case      `json:"current,omitempty"`
	Log        []LogEntry `json:"log"`
	Stats      Stats      `json:"stats"`
	CreatedAt  time.Time  `json:"created_at"`
}

// WaitingRoom returns the queue as the public waiting-room view.
func (s *SessionState) WaitingRoom() []Waiting {
	out := make([]Waiting, 0, len(s.Waiting))
	for _, c := range s.Waiting {
		out = append(out, c.Summary())
	}
	return out
}

// adjustMoney applies delta, flooring the balance at zero, and returns the
// delta actually applied.
func (s *SessionState) adjustMoney(delta int) int {
	before := s.Money
	s.Money += delta
	if s.Money < 0 {
		s.Money = 0
	}
	return s.Money - before
}

// adjustReputation applies delta within the reputation bounds and returns
// the delta actually applied.
func (s *SessionState) adjustReputation(delta int) int {
	before := s.Reputation
	s.Reputation = clamp(s.Reputation+delta, MinReputation, MaxReputation)
	return s.Reputation - before
}

func (s *SessionState) logf(now time.Time, format string, args ...any) {
	s.Log = append(s.Log, LogEntry{Time: now, Message: fmt.Sprintf(format, args...)})
	if over := len(s.Log) - maxLogEntries; over > 0 {
		s.Log = append([]LogEntry(nil), s.Log[over:]...)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
