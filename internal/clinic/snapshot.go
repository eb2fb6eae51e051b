package clinic

import (
	"encoding/json"
	"fmt"

	"github.com/EcliqseX/vetsim/internal/catalog"
)

const snapshotVersion = 1

// Snapshot is the serialised form of a SessionState. Hidden diseases are
// stored by id and re-resolved through the catalog on restore.
type Snapshot struct {
	Version      int               `json:"version"`
	State        *SessionState     `json:"state"`
	CaseDiseases map[string]string `json:"case_diseases"`
}

// TakeSnapshot captures state. The snapshot shares cases with state and
// must be encoded before state is mutated again.
func TakeSnapshot(state *SessionState) *Snapshot {
	snap := &Snapshot{
		Version:      snapshotVersion,
		State:        state,
		CaseDiseases: make(map[string]string, len(state.Waiting)+1),
	}
	for _, c := range state.cases() {
		if c.Disease != nil {
			snap.CaseDiseases[c.ID] = c.Disease.ID
		}
	}
	return snap
}

// Restore rebuilds the session, resolving every case's disease in cat.
func (s *Snapshot) Restore(cat *catalog.Catalog) (*SessionState, error) {
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	if s.State == nil {
		return nil, fmt.Errorf("snapshot has no state")
	}

	for _, c := range s.State.cases() {
		id, ok := s.CaseDiseases[c.ID]
		if !ok {
			return nil, fmt.Errorf("case %s has no disease", c.ID)
		}
		d, ok := cat.Disease(id)
		if !ok {
			return nil, fmt.Errorf("case %s references unknown disease %q", c.ID, id)
		}
		c.Disease = d

		if o := c.Diagnosis; o != nil {
			o.Actual = d
			o.Selected = nil
			if sel, ok := cat.Disease(o.SelectedID); ok {
				o.Selected = sel
			}
		}
	}
	return s.State, nil
}

// MarshalSession encodes state as a JSON snapshot.
func MarshalSession(state *SessionState) ([]byte, error) {
	return json.Marshal(TakeSnapshot(state))
}

// UnmarshalSession decodes a JSON snapshot produced by MarshalSession.
func UnmarshalSession(cat *catalog.Catalog, data []byte) (*SessionState, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return snap.Restore(cat)
}

func (s *SessionState) cases() []*Case {
	out := make([]*Case, 0, len(s.Waiting)+1)
	out = append(out, s.Waiting...)
	if s.Current != nil {
		out = append(out, s.Current)
	}
	return out
}
