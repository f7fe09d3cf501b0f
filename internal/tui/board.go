// Package tui implements a terminal UI for dubboard boards.
package tui

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/dubboard/internal/board"
	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/date"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
	"github.com/twiced-technology-gmbh/dubboard/internal/workspace"
)

// view represents the current screen state.
type view int

const (
	viewBoard view = iota
	viewConfirmDelete
	viewPrompt
)

// prompt is what the text input is collecting.
type prompt int

const (
	promptFilter prompt = iota
	promptEdit
)

// Layout constants.
const (
	tagMaxFraction = 2           // tags get at most 1/N of card width
	boardChrome    = 2           // blank line + status bar below the column area
	errorChrome    = 1           // extra line when error toast is displayed
	tickInterval   = time.Minute // how often due labels refresh
	dueSoonDays    = 2           // due dates closer than this are highlighted
	noStatus       = "(none)"
	doubleClick    = 500 * time.Millisecond
)

// Deleter removes a task. The board hides deletion when it has none.
type Deleter interface {
	Delete(ctx context.Context, boardID, taskID string) error
}

// Board is the top-level bubbletea model.
type Board struct {
	ctx       context.Context
	session   *workspace.Session
	cfg       *config.Config
	deleter   Deleter
	tasks     []task.Task
	total     int
	columns   []column
	activeCol int
	activeRow int
	view      view
	width     int
	height    int
	err       error
	now       func() time.Time // clock for due labels; defaults to time.Now

	statusField string

	// Delete confirmation.
	deleteID    string
	deleteTitle string

	// Filter and edit prompts.
	prompt prompt
	input  textinput.Model

	// Double-click tracking.
	lastClickCol  int
	lastClickRow  int
	lastClickTime time.Time
}

// column groups tasks belonging to a single status.
type column struct {
	status    string
	tasks     []task.Task
	scrollOff int // first visible row index
}

// NewBoard creates a Board over a mounted session. deleter may be nil.
func NewBoard(ctx context.Context, s *workspace.Session, deleter Deleter) *Board {
	cfg := s.Config()
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 50

	b := &Board{
		ctx:     ctx,
		session: s,
		cfg:     cfg,
		deleter: deleter,
		now:     time.Now,
		input:   ti,
	}
	if col, ok := cfg.ColumnOfType(task.TypeStatus); ok {
		b.statusField = col.FieldName()
	}
	b.loadTasks()
	return b
}

// SetNow overrides the clock function used for due labels (for testing).
func (b *Board) SetNow(fn func() time.Time) {
	b.now = fn
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.MouseMsg:
		return b.handleMouse(msg)
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		return b, nil
	case ReloadMsg:
		b.loadTasks()
		return b, nil
	case TickMsg:
		return b, tickCmd()
	}
	return b, nil
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}

	switch b.view {
	case viewConfirmDelete:
		return b.viewDeleteConfirm()
	default:
		return b.viewBoard()
	}
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys.
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
		return b, tea.Quit
	}

	switch b.view {
	case viewBoard:
		return b.handleBoardKey(msg)
	case viewConfirmDelete:
		return b.handleDeleteKey(msg)
	case viewPrompt:
		return b.handlePromptKey(msg)
	}

	return b, nil
}

func (b *Board) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return b, tea.Quit
	case key.Matches(msg, keys.Left):
		if b.activeCol > 0 {
			b.activeCol--
			b.clampRow()
		}
	case key.Matches(msg, keys.Right):
		if b.activeCol < len(b.columns)-1 {
			b.activeCol++
			b.clampRow()
		}
	case key.Matches(msg, keys.Down):
		col := b.currentColumn()
		if col != nil && b.activeRow < len(col.tasks)-1 {
			b.activeRow++
			b.ensureVisible()
		}
	case key.Matches(msg, keys.Up):
		if b.activeRow > 0 {
			b.activeRow--
			b.ensureVisible()
		}
	case key.Matches(msg, keys.Select):
		if t := b.selectedTask(); t != nil {
			b.session.View().Selection.Toggle(t.ID)
		}
	case key.Matches(msg, keys.ClearSelect):
		b.session.View().Selection.Clear()
	case key.Matches(msg, keys.MoveNext):
		b.moveStatus(1)
	case key.Matches(msg, keys.MovePrev):
		b.moveStatus(-1)
	case key.Matches(msg, keys.Edit):
		if b.selectedTask() != nil {
			return b, b.openPrompt(promptEdit, "edit field=value: ")
		}
	case key.Matches(msg, keys.Filter):
		return b, b.openPrompt(promptFilter, "filter column:type:value: ")
	case key.Matches(msg, keys.ClearFilter):
		b.session.View().Filters.Clear()
		b.loadTasks()
	case key.Matches(msg, keys.SortKey):
		b.nextSortKey()
		b.loadTasks()
	case key.Matches(msg, keys.SortDir):
		if k := b.session.View().Sort.Key; k != "" {
			b.session.View().Sort = b.session.View().Sort.Toggle(k)
			b.loadTasks()
		}
	case key.Matches(msg, keys.Refresh):
		if err := b.session.Refresh(b.ctx); err != nil {
			b.err = err
		}
		b.loadTasks()
	case key.Matches(msg, keys.Delete):
		b.handleDeleteStart()
	}
	return b, nil
}

// moveStatus edits the status of the focused task to the neighbouring
// configured status. When the task is part of a multi-task selection every
// selected task gets the same new status.
func (b *Board) moveStatus(delta int) {
	t := b.selectedTask()
	if t == nil || b.statusField == "" {
		return
	}
	idx := b.cfg.StatusIndex(task.String(t.Get(b.statusField))) + delta
	if idx < 0 || idx >= len(b.cfg.Statuses) {
		return
	}
	b.edit(t.ID, b.statusField, b.cfg.Statuses[idx])
}

func (b *Board) edit(taskID, field string, value any) {
	res, err := b.session.Edit(b.ctx, taskID, field, value)
	b.err = err
	if err == nil && res.Bulk {
		b.session.View().Selection.Clear()
	}
	b.loadTasks()
	b.focusTask(taskID)
}

func (b *Board) openPrompt(p prompt, label string) tea.Cmd {
	b.prompt = p
	b.view = viewPrompt
	b.input.Prompt = label
	b.input.SetValue("")
	return b.input.Focus()
}

func (b *Board) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := strings.TrimSpace(b.input.Value())
		b.closePrompt()
		if value != "" {
			b.submitPrompt(value)
		}
		return b, nil
	case tea.KeyEsc:
		b.closePrompt()
		return b, nil
	}
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	return b, cmd
}

func (b *Board) closePrompt() {
	b.input.Blur()
	b.view = viewBoard
}

func (b *Board) submitPrompt(value string) {
	switch b.prompt {
	case promptFilter:
		f, err := board.ParseFilter(value, b.cfg)
		if err != nil {
			b.err = err
			return
		}
		b.session.View().Filters.Set(f)
		b.err = nil
		b.loadTasks()
	case promptEdit:
		t := b.selectedTask()
		if t == nil {
			return
		}
		field, raw, ok := strings.Cut(value, "=")
		if !ok {
			b.err = clierr.Newf(clierr.InvalidInput, "expected field=value, got %q", value)
			return
		}
		b.edit(t.ID, strings.TrimSpace(field), strings.TrimSpace(raw))
	}
}

// nextSortKey advances the sort to the next column, ascending, wrapping
// back to no sort after the last one.
func (b *Board) nextSortKey() {
	v := b.session.View()
	var fields []string
	for _, col := range b.cfg.Columns {
		if col.FieldName() != b.statusField {
			fields = append(fields, col.FieldName())
		}
	}
	i := slices.Index(fields, v.Sort.Key)
	if i+1 >= len(fields) {
		v.Sort = board.SortConfig{}
		return
	}
	v.Sort = board.SortConfig{Key: fields[i+1], Direction: board.Asc}
}

func (b *Board) handleDeleteStart() {
	if b.deleter == nil {
		return
	}
	if t := b.selectedTask(); t != nil {
		b.deleteID = t.ID
		b.deleteTitle = t.Title
		b.view = viewConfirmDelete
	}
}

func (b *Board) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Confirm):
		return b.executeDelete()
	case key.Matches(msg, keys.Cancel):
		b.view = viewBoard
	}
	return b, nil
}

func (b *Board) executeDelete() (tea.Model, tea.Cmd) {
	if err := b.deleter.Delete(b.ctx, b.session.Board(), b.deleteID); err != nil {
		b.err = fmt.Errorf("deleting task #%s: %w", b.deleteID, err)
	} else {
		b.session.View().Selection.Remove(b.deleteID)
		if err := b.session.Refresh(b.ctx); err != nil {
			b.err = err
		}
	}
	b.view = viewBoard
	b.loadTasks()
	return b, nil
}

// handleMouse handles mouse click events for card focus. Double-clicking a
// card toggles its selection.
func (b *Board) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return b, nil
	}
	if b.view != viewBoard {
		return b, nil
	}

	colWidth := b.columnWidth()
	clickedCol := msg.X / colWidth
	if clickedCol >= len(b.columns) {
		return b, nil
	}

	col := &b.columns[clickedCol]
	lineY := msg.Y - 1
	if lineY < 0 {
		b.activeCol = clickedCol
		b.clampRow()
		return b, nil
	}

	clickedRow := -1
	cardLine := 0
	for rowIdx := col.scrollOff; rowIdx < len(col.tasks); rowIdx++ {
		cardH := b.cardHeight(col.tasks[rowIdx], colWidth)
		if lineY < cardLine+cardH {
			clickedRow = rowIdx
			break
		}
		cardLine += cardH
	}

	if clickedRow < 0 {
		b.activeCol = clickedCol
		b.clampRow()
		return b, nil
	}

	now := b.now()
	isDoubleClick := clickedCol == b.lastClickCol &&
		clickedRow == b.lastClickRow &&
		now.Sub(b.lastClickTime) < doubleClick

	b.activeCol = clickedCol
	b.activeRow = clickedRow
	b.lastClickCol = clickedCol
	b.lastClickRow = clickedRow
	b.lastClickTime = now
	b.ensureVisible()

	if isDoubleClick {
		b.session.View().Selection.Toggle(col.tasks[clickedRow].ID)
	}

	return b, nil
}

// loadTasks reads the board through the session and organizes the filtered,
// sorted tasks into status columns.
func (b *Board) loadTasks() {
	focused := ""
	if t := b.selectedTask(); t != nil {
		focused = t.ID
	}

	records, err := b.session.Records(b.ctx)
	if err != nil {
		b.err = err
		return
	}
	b.total = len(records)
	b.tasks = b.session.View().Render(records)

	b.columns = make([]column, 0, len(b.cfg.Statuses)+1)
	for _, status := range b.cfg.Statuses {
		b.columns = append(b.columns, column{status: status})
	}

	var unsorted []task.Task
	for _, t := range b.tasks {
		idx := -1
		if b.statusField != "" {
			idx = b.cfg.StatusIndex(task.String(t.Get(b.statusField)))
		}
		if idx < 0 {
			unsorted = append(unsorted, t)
			continue
		}
		b.columns[idx].tasks = append(b.columns[idx].tasks, t)
	}
	if len(unsorted) > 0 {
		b.columns = append(b.columns, column{status: noStatus, tasks: unsorted})
	}

	if b.activeCol >= len(b.columns) {
		b.activeCol = max(len(b.columns)-1, 0)
	}
	b.focusTask(focused)
	b.clampRow()
}

// focusTask moves the cursor to the task with id, if it is visible.
func (b *Board) focusTask(id string) {
	if id == "" {
		return
	}
	for ci, col := range b.columns {
		for ri, t := range col.tasks {
			if t.ID == id {
				b.activeCol, b.activeRow = ci, ri
				b.ensureVisible()
				return
			}
		}
	}
}

func (b *Board) currentColumn() *column {
	if b.activeCol >= 0 && b.activeCol < len(b.columns) {
		return &b.columns[b.activeCol]
	}
	return nil
}

func (b *Board) selectedTask() *task.Task {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		return nil
	}
	if b.activeRow >= 0 && b.activeRow < len(col.tasks) {
		return &col.tasks[b.activeRow]
	}
	return nil
}

func (b *Board) clampRow() {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		b.activeRow = 0
		return
	}
	if b.activeRow >= len(col.tasks) {
		b.activeRow = len(col.tasks) - 1
	}
	b.ensureVisible()
}

// chromeHeight returns the number of lines consumed by non-card elements below
// the column area: blank line + status bar (+ error line when an error is shown).
func (b *Board) chromeHeight() int {
	h := boardChrome
	if b.err != nil {
		h += errorChrome
	}
	return h
}

// visibleCardsForColumn returns the number of cards that fit in the column,
// accounting for scroll indicator lines ("↑ N more" / "↓ N more") that
// consume vertical space.
func (b *Board) visibleCardsForColumn(col *column, width int) int {
	budget := b.height - b.chromeHeight()
	if budget < 1 {
		return 1
	}

	// Always need 1 line for column header.
	avail := budget - 1

	if col.scrollOff > 0 {
		avail--
	}

	n := b.fitCardsInHeight(col, avail, width)

	if col.scrollOff+n < len(col.tasks) {
		n = max(b.fitCardsInHeight(col, avail-1, width), 1)
	}

	return n
}

// ensureVisible adjusts the active column's scroll offset so the
// focused row is within the visible window.
func (b *Board) ensureVisible() {
	col := b.currentColumn()
	if col == nil {
		return
	}
	w := b.columnWidth()

	for range len(col.tasks) + 1 {
		maxVis := b.visibleCardsForColumn(col, w)

		switch {
		case b.activeRow >= col.scrollOff+maxVis:
			col.scrollOff = b.activeRow - maxVis + 1
		case b.activeRow < col.scrollOff:
			col.scrollOff = b.activeRow
		default:
			return
		}
	}
}

func (b *Board) fitCardsInHeight(col *column, avail, width int) int {
	if len(col.tasks) == 0 || avail < 1 {
		return 1
	}

	used := 0
	count := 0
	for i := col.scrollOff; i < len(col.tasks); i++ {
		cardLines := b.cardHeight(col.tasks[i], width)
		if count > 0 && used+cardLines > avail {
			break
		}
		count++
		used += cardLines
		if used >= avail {
			break
		}
	}

	return max(count, 1)
}

// --- Messages ---

// ReloadMsg is sent when the session's cached board was invalidated.
type ReloadMsg struct{}

// TickMsg is sent periodically to refresh due labels.
type TickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

// --- Styles ---

var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	activeColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeCardStyle = cardStyle.BorderForeground(lipgloss.Color("226"))

	selectedCardStyle = cardStyle.BorderForeground(lipgloss.Color("212"))

	urgentCardStyle = cardStyle.BorderForeground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dueSoonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	selectedMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Render("●")
	personStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("44"))
	phaseTagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))

	// tagColorPalette is a set of distinct, readable terminal colors for auto-coloring tags.
	tagColorPalette = []lipgloss.Color{"33", "36", "35", "32", "91", "34", "93", "96"}

	dialogPadY = 1
	dialogPadX = 2

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(dialogPadY, dialogPadX)
)

// DisableStyles strips colors from card decorations, for NO_COLOR
// terminals.
func DisableStyles() {
	dimStyle = lipgloss.NewStyle()
	overdueStyle = lipgloss.NewStyle()
	dueSoonStyle = lipgloss.NewStyle()
	personStyle = lipgloss.NewStyle()
	phaseTagStyle = lipgloss.NewStyle()
	selectedMark = "*"
	tagColorPalette = []lipgloss.Color{""}
}

// tagStyle returns a consistent lipgloss style for a tag, derived by hashing
// the tag name into the tagColorPalette. Same tag always gets the same color.
func tagStyle(tag string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tag))
	color := tagColorPalette[h.Sum32()%uint32(len(tagColorPalette))]
	return lipgloss.NewStyle().Foreground(color)
}

// --- View rendering ---

func (b *Board) viewBoard() string {
	if len(b.columns) == 0 {
		return "No statuses configured."
	}

	colWidth := b.columnWidth()

	renderedCols := make([]string, len(b.columns))
	for i, col := range b.columns {
		renderedCols[i] = b.renderColumn(i, col, colWidth)
	}

	boardView := lipgloss.JoinHorizontal(lipgloss.Top, renderedCols...)

	// Clamp from the bottom (keeping headers at the top) and pad if needed.
	targetHeight := b.height - b.chromeHeight()
	if targetHeight > 0 {
		actual := strings.Count(boardView, "\n") + 1
		if actual > targetHeight {
			viewLines := strings.SplitN(boardView, "\n", targetHeight+1)
			boardView = strings.Join(viewLines[:targetHeight], "\n")
		} else if actual < targetHeight {
			boardView += strings.Repeat("\n", targetHeight-actual)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, boardView, "", b.renderStatusBar())
}

func (b *Board) columnWidth() int {
	if b.width == 0 || len(b.columns) == 0 {
		return 30 //nolint:mnd // default column width
	}
	const maxColWidth = 75
	return min(b.width/len(b.columns), maxColWidth)
}

func (b *Board) renderColumn(colIdx int, col column, width int) string {
	const headerPad = 2
	headerText := truncate(fmt.Sprintf("%s (%d)", col.status, len(col.tasks)), width-headerPad)

	var header string
	if colIdx == b.activeCol {
		header = activeColumnHeaderStyle.Width(width).Render(headerText)
	} else {
		header = columnHeaderStyle.Width(width).Render(headerText)
	}

	maxVis := b.visibleCardsForColumn(&col, width)
	start := min(col.scrollOff, len(col.tasks))
	end := min(start+maxVis, len(col.tasks))

	parts := []string{header}

	if start > 0 {
		indicator := fmt.Sprintf("  ↑ %d more", start)
		parts = append(parts, dimStyle.Width(width).Render(truncate(indicator, width)))
	}

	if len(col.tasks) == 0 {
		parts = append(parts, dimStyle.Width(width).Render("  (empty)"))
	} else {
		for rowIdx := start; rowIdx < end; rowIdx++ {
			active := colIdx == b.activeCol && rowIdx == b.activeRow
			parts = append(parts, b.renderCard(col.tasks[rowIdx], active, width))
		}
	}

	if end < len(col.tasks) {
		indicator := fmt.Sprintf("  ↓ %d more", len(col.tasks)-end)
		parts = append(parts, dimStyle.Width(width).Render(truncate(indicator, width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) renderCard(t task.Task, active bool, width int) string {
	content := strings.Join(b.cardContentLines(t, width), "\n")

	style := cardStyle
	switch {
	case active:
		style = activeCardStyle
	case b.session.View().Selection.Has(t.ID):
		style = selectedCardStyle
	case b.isUrgent(t):
		style = urgentCardStyle
	}

	return style.Width(width - 2).Render(content) //nolint:mnd // border width
}

func (b *Board) cardHeight(t task.Task, width int) int {
	return len(b.cardContentLines(t, width)) + 2 //nolint:mnd // top and bottom borders
}

func (b *Board) cardContentLines(t task.Task, width int) []string {
	const cardChrome = 4 // border (2) + padding (2)
	cardWidth := max(width-cardChrome, 1)

	const maxBodyLines = 2

	prefix := ""
	if b.session.View().Selection.Has(t.ID) {
		prefix = selectedMark + " "
	}
	assigneeSuffix := ""
	if s := b.valueOfType(t, task.TypePerson); s != "" {
		assigneeSuffix = "  " + personStyle.Render(s)
	}
	titleWidth := max(cardWidth-lipgloss.Width(prefix)-lipgloss.Width(assigneeSuffix), 1)

	lines := []string{prefix + truncate("#"+t.ID+" "+t.Title, titleWidth) + assigneeSuffix}

	// Phase, due date and services on one line.
	var meta []string
	if s := b.valueOfType(t, task.TypePhase); s != "" {
		meta = append(meta, phaseTagStyle.Render(s))
	}
	if label := b.dueLabel(t); label != "" {
		meta = append(meta, label)
	}
	if col, ok := b.cfg.ColumnOfType(task.TypeMultiSelect); ok {
		if tags, ok := t.Get(col.FieldName()).([]string); ok {
			budget := cardWidth / tagMaxFraction
			for _, tag := range tags {
				budget -= lipgloss.Width(tag) + 1
				if budget < 0 {
					break
				}
				meta = append(meta, tagStyle(tag).Render(tag))
			}
		}
	}
	if len(meta) > 0 {
		lines = append(lines, strings.Join(meta, " "))
	}

	if t.Body != "" {
		body := strings.Join(strings.Fields(t.Body), " ")
		for _, line := range wrapTitle(body, cardWidth, maxBodyLines) {
			lines = append(lines, dimStyle.Render(line))
		}
	}

	return lines
}

// dueLabel renders the first date column relative to now: "due 3d",
// "overdue 2d", or "" when unset. Tasks in the final status never show as
// overdue.
func (b *Board) dueLabel(t task.Task) string {
	col, ok := b.cfg.ColumnOfType(task.TypeDate)
	if !ok {
		return ""
	}
	d, ok := t.Get(col.FieldName()).(date.Date)
	if !ok {
		return ""
	}
	days := date.Of(b.now()).DaysUntil(d)
	switch {
	case days < 0 && !b.isDone(t):
		return overdueStyle.Render("overdue " + daySpan(-days))
	case days < 0:
		return dimStyle.Render(d.String())
	case days == 0:
		return dueSoonStyle.Render("due today")
	case days < dueSoonDays:
		return dueSoonStyle.Render("due " + daySpan(days))
	default:
		return dimStyle.Render("due " + daySpan(days))
	}
}

func (b *Board) isDone(t task.Task) bool {
	n := len(b.cfg.Statuses)
	return n > 0 && task.String(t.Get(b.statusField)) == b.cfg.Statuses[n-1]
}

func (b *Board) isUrgent(t task.Task) bool {
	col, ok := b.cfg.ColumnOfType(task.TypeBoolean)
	if !ok {
		return false
	}
	v, _ := t.Get(col.FieldName()).(bool)
	return v
}

func (b *Board) valueOfType(t task.Task, ft task.FieldType) string {
	col, ok := b.cfg.ColumnOfType(ft)
	if !ok {
		return ""
	}
	return task.String(t.Get(col.FieldName()))
}

// wrapTitle splits a title across maxLines lines, word-wrapping at word
// boundaries. Each line is at most maxWidth characters.
func wrapTitle(title string, maxWidth, maxLines int) []string {
	if maxLines < 1 {
		maxLines = 1
	}
	if lipgloss.Width(title) <= maxWidth || maxLines == 1 {
		return []string{truncate(title, maxWidth)}
	}

	words := strings.Fields(title)
	lines := make([]string, 0, maxLines)
	var current strings.Builder

	for i, word := range words {
		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}
		if lipgloss.Width(current.String())+1+lipgloss.Width(word) <= maxWidth {
			current.WriteByte(' ')
			current.WriteString(word)
		} else {
			lines = append(lines, truncate(current.String(), maxWidth))
			current.Reset()
			current.WriteString(word)
			if len(lines) == maxLines-1 {
				// Last line: append all remaining words.
				for _, w := range words[i+1:] {
					current.WriteByte(' ')
					current.WriteString(w)
				}
				break
			}
		}
	}
	if current.Len() > 0 {
		lines = append(lines, truncate(current.String(), maxWidth))
	}
	return lines
}

func (b *Board) renderStatusBar() string {
	if b.view == viewPrompt {
		return b.input.View()
	}

	v := b.session.View()
	parts := []string{" " + b.cfg.Board.Name}
	if len(b.tasks) == b.total {
		parts = append(parts, strconv.Itoa(b.total)+" tasks")
	} else {
		parts = append(parts, fmt.Sprintf("%d/%d tasks", len(b.tasks), b.total))
	}
	if n := v.Filters.Len(); n > 0 {
		parts = append(parts, strconv.Itoa(n)+" filters")
	}
	if v.Sort.Active() {
		parts = append(parts, "sort:"+v.Sort.Key+" "+string(v.Sort.Direction))
	}
	if n := v.Selection.Len(); n > 0 {
		parts = append(parts, strconv.Itoa(n)+" selected")
	}

	var help []string
	for _, k := range keys.shortHelp() {
		if k.Help().Key == "d" && b.deleter == nil {
			continue
		}
		help = append(help, k.Help().Key+":"+k.Help().Desc)
	}
	parts = append(parts, strings.Join(help, " "))

	status := truncate(strings.Join(parts, " | "), b.width)

	if b.err != nil {
		errStr := errorStyle.Render(truncate("Error: "+b.err.Error(), b.width))
		return errStr + "\n" + statusBarStyle.Render(status)
	}

	return statusBarStyle.Render(status)
}

func (b *Board) viewDeleteConfirm() string {
	content := errorStyle.Render("Delete task?") + "\n\n" +
		fmt.Sprintf("  #%s: %s", b.deleteID, b.deleteTitle) + "\n\n" +
		dimStyle.Render("y:yes  n:no")

	return dialogStyle.Render(content)
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 { //nolint:mnd // minimum length for truncation
		maxLen = 4
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	// Slice by runes to avoid breaking multi-byte UTF-8 characters.
	runes := []rune(s)
	target := min(maxLen-3, len(runes)) //nolint:mnd // room for "..."
	// Trim runes from the end until the display width fits.
	for target > 0 && lipgloss.Width(string(runes[:target])) > maxLen-3 {
		target--
	}
	return string(runes[:target]) + "..."
}

// daySpan formats a positive number of days compactly: "3d", "2w",
// "3mo", "1y".
func daySpan(days int) string {
	const (
		week  = 7
		month = 30
		year  = 365
	)
	switch {
	case days < week:
		return strconv.Itoa(days) + "d"
	case days < month:
		return strconv.Itoa(days/week) + "w"
	case days < year:
		return strconv.Itoa(days/month) + "mo"
	default:
		return strconv.Itoa(days/year) + "y"
	}
}
