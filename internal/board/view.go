package board

import (
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

// View is the filter, sort and selection state of one mounted board.
type View struct {
	Filters   *Filters
	Sort      SortConfig
	Selection *Selection
	Accessor  Accessor

	sorter *Sorter
}

// NewView returns an empty view that sorts with the board's configured
// locale and enum orders.
func NewView(cfg *config.Config) *View {
	return &View{
		Filters:   &Filters{},
		Selection: &Selection{},
		Accessor:  ConfigAccessor(cfg),
		sorter:    NewSorter(cfg.Locale()),
	}
}

// Render filters then sorts records. records is left untouched.
func (v *View) Render(records []task.Task) []task.Task {
	filtered := Apply(records, v.Filters)
	if v.sorter == nil {
		return Sort(filtered, v.Sort, v.Accessor)
	}
	return v.sorter.Sort(filtered, v.Sort, v.Accessor)
}

// Reset clears filters, sort and selection, as on a board switch.
func (v *View) Reset() {
	v.Filters.Clear()
	v.Sort = SortConfig{}
	v.Selection.Clear()
}
