package board

import "slices"

// Selection is an insertion-ordered set of task ids. Re-adding an id keeps
// its position; removing and adding it again moves it to the end. The zero
// value is an empty selection.
type Selection struct {
	ids []string
	set map[string]struct{}
}

// NewSelection returns a selection holding ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add selects id.
func (s *Selection) Add(id string) {
	if s.Has(id) {
		return
	}
	if s.set == nil {
		s.set = make(map[string]struct{})
	}
	s.set[id] = struct{}{}
	s.ids = append(s.ids, id)
}

// Remove deselects id.
func (s *Selection) Remove(id string) {
	if !s.Has(id) {
		return
	}
	delete(s.set, id)
	s.ids = slices.DeleteFunc(s.ids, func(x string) bool { return x == id })
}

// Toggle flips id's membership and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.ids = nil
	s.set = nil
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the selected ids in insertion order.
func (s *Selection) IDs() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.ids)
}

// Retain drops every selected id not in present, e.g. after a refetch
// removed tasks.
func (s *Selection) Retain(present []string) {
	keep := make(map[string]struct{}, len(present))
	for _, id := range present {
		keep[id] = struct{}{}
	}
	for _, id := range s.IDs() {
		if _, ok := keep[id]; !ok {
			s.Remove(id)
		}
	}
}

// ShouldApplyBulkEdit reports whether an edit on id applies to the whole
// selection: more than one task is selected and id is one of them.
func (s *Selection) ShouldApplyBulkEdit(id string) bool {
	return s.Len() > 1 && s.Has(id)
}

// BulkCommand is a field edit to broadcast to several tasks, one mutation
// per id with the same value.
type BulkCommand struct {
	IDs   []string `json:"ids"`
	Field string   `json:"field"`
	Value any      `json:"value"`
}

// BulkEdit returns the command for editing field on id when the edit
// applies to the selection. It performs no mutation itself.
func (s *Selection) BulkEdit(id, field string, value any) (BulkCommand, bool) {
	if !s.ShouldApplyBulkEdit(id) {
		return BulkCommand{}, false
	}
	return BulkCommand{IDs: s.IDs(), Field: field, Value: value}, true
}
