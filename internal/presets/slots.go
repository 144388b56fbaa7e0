package presets

// Slots is the persisted two-slot record: the live settings and the one
// snapshot a rollback returns to.
type Slots struct {
	Current  Settings  `json:"current"`
	Previous *Settings `json:"previous,omitempty"`
	Revision int64     `json:"revision"`
}

// Activate moves Current into Previous and installs next.
func (s Slots) Activate(next Settings) Slots {
	prior := s.Current
	return Slots{Current: next, Previous: &prior, Revision: s.Revision + 1}
}

// Rollback restores Previous and clears it. A second rollback without an
// activation in between fails with ErrNothingToRollback.
func (s Slots) Rollback() (Slots, error) {
	if s.Previous == nil {
		return s, ErrNothingToRollback
	}
	return Slots{Current: *s.Previous, Revision: s.Revision + 1}, nil
}

func (s Slots) CanRollback() bool {
	return s.Previous != nil
}
