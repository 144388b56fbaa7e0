package content

import "time"

// Section is a named, reusable group of blocks owned independently of any
// page.
type Section struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Blocks      []Block   `json:"blocks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BlockTypes returns the distinct block types in the section in first-seen
// order.
func (s Section) BlockTypes() []string {
	return DistinctTypes(s.Blocks)
}
