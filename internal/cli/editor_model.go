package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/shelfmap/shelfmap/pkg/editor"
	"github.com/shelfmap/shelfmap/pkg/geometry"
	"github.com/shelfmap/shelfmap/pkg/inventory"
)

// Terminal cells are roughly twice as tall as wide, so one text row counts
// as two display units. Mouse rows and render rows are scaled by this.
const cellAspect = 2.0

// Lines of chrome above and below the canvas.
const (
	headerLines = 2
	footerLines = 2
)

type editModelParams struct {
	location  inventory.Location
	crumbs    []inventory.Breadcrumb
	regions   []inventory.Region
	magnetism editor.MagnetConfig
	logger    *log.Logger
	save      func([]editor.Region) error
}

// editModel is the bubbletea model wrapping the region editor controller.
// It translates terminal mouse events into pointer gestures and renders
// the region set over a scaled canvas.
type editModel struct {
	ctrl     *editor.Controller
	location inventory.Location
	crumbs   []inventory.Breadcrumb
	save     func([]editor.Region) error

	width  int
	height int

	// Naming input state. The buffer captures keystrokes while focused;
	// focus follows freshly drawn regions and the n key.
	nameFocus  bool
	nameBuffer string
	namingWas  bool

	// dirty is shared across model copies; the controller's change
	// callback flips it from outside the update loop's value semantics.
	dirty *bool

	saved   bool
	saveErr error
	status  string
}

func newEditModel(p editModelParams) editModel {
	ers := make([]editor.Region, 0, len(p.regions))
	for _, r := range p.regions {
		ers = append(ers, r.EditorRegion())
	}
	dirty := new(bool)
	m := editModel{
		location: p.location,
		crumbs:   p.crumbs,
		save:     p.save,
		dirty:    dirty,
	}
	m.ctrl = editor.New(editor.Options{
		Image:     p.location.ImageSize(),
		Regions:   ers,
		Magnetism: p.magnetism,
		Logger:    p.logger,
		OnRegionsChanged: func([]editor.Region) {
			*dirty = true
		},
	})
	return m
}

func (m editModel) Init() tea.Cmd {
	return nil
}

func (m editModel) canvasSize() (cols, rows int) {
	cols = m.width
	rows = m.height - headerLines - footerLines
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		cols, rows := m.canvasSize()
		m.ctrl.SetContainerSize(geometry.Size{Width: float64(cols), Height: float64(rows) * cellAspect})
		return m, nil

	case tea.MouseMsg:
		return m.updateMouse(msg), nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

// displayPoint maps a terminal mouse position onto the controller's
// display coordinate space.
func (m editModel) displayPoint(msg tea.MouseMsg) geometry.Point {
	return geometry.Point{
		X: float64(msg.X),
		Y: float64(msg.Y-headerLines) * cellAspect,
	}
}

func (m editModel) updateMouse(msg tea.MouseMsg) editModel {
	if msg.Button != tea.MouseButtonLeft && msg.Action != tea.MouseActionMotion {
		return m
	}
	_, rows := m.canvasSize()
	onCanvas := msg.Y >= headerLines && msg.Y < headerLines+rows

	switch msg.Action {
	case tea.MouseActionPress:
		if onCanvas {
			m.ctrl.PointerDown(m.displayPoint(msg))
			m = m.syncNaming()
		}
	case tea.MouseActionMotion:
		if onCanvas {
			m.ctrl.PointerMove(m.displayPoint(msg))
		} else {
			m.ctrl.PointerLeave()
		}
	case tea.MouseActionRelease:
		m.ctrl.PointerUp(m.displayPoint(msg))
		m = m.syncNaming()
	}
	return m
}

// syncNaming focuses the name input when naming opens on a nameless
// region, and tracks open/close transitions.
func (m editModel) syncNaming() editModel {
	naming := m.ctrl.NamingState()
	if naming.Open && !m.namingWas {
		m.nameBuffer = naming.Initial
		m.nameFocus = naming.Initial == ""
	}
	if !naming.Open {
		m.nameFocus = false
	}
	m.namingWas = naming.Open
	return m
}

func (m editModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.nameFocus {
		return m.updateNameInput(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.ctrl.State() == editor.StateDrawing {
			m.ctrl.CancelDrawing()
			return m, nil
		}
		return m, tea.Quit

	case "d":
		if m.ctrl.State() == editor.StateDrawing {
			m.ctrl.CancelDrawing()
		} else {
			m.ctrl.BeginDrawing()
		}
		m = m.syncNaming()

	case "m":
		m.ctrl.SetMagnetism(nextMagnetism(m.ctrl.Magnetism()))
		m.status = "magnetism: " + string(m.ctrl.Magnetism().Mode)

	case "n":
		if naming := m.ctrl.NamingState(); naming.Open {
			m.nameBuffer = naming.Initial
			m.nameFocus = true
		}

	case "c":
		if sel, ok := m.ctrl.Selected(); ok {
			m.ctrl.Duplicate(sel.ID)
		}

	case "x", "backspace", "delete":
		if sel, ok := m.ctrl.Selected(); ok {
			m.ctrl.Remove(sel.ID)
			m = m.syncNaming()
		}

	case "s":
		m.saveErr = m.save(m.ctrl.Regions())
		if m.saveErr != nil {
			m.status = "save failed: " + m.saveErr.Error()
		} else {
			m.saved = true
			*m.dirty = false
			m.status = "saved"
		}
	}
	return m, nil
}

func (m editModel) updateNameInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.ctrl.CommitName(strings.TrimSpace(m.nameBuffer))
		m.nameFocus = false
		m = m.syncNaming()
	case "esc":
		m.ctrl.CancelNaming()
		m.nameFocus = false
		m = m.syncNaming()
	case "backspace":
		if len(m.nameBuffer) > 0 {
			runes := []rune(m.nameBuffer)
			m.nameBuffer = string(runes[:len(runes)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.nameBuffer += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			m.nameBuffer += " "
		}
	}
	return m, nil
}

func nextMagnetism(cfg editor.MagnetConfig) editor.MagnetConfig {
	switch cfg.Mode {
	case editor.MagnetNone:
		cfg.Mode = editor.MagnetEdges
	case editor.MagnetEdges:
		cfg.Mode = editor.MagnetDistance
	default:
		cfg.Mode = editor.MagnetNone
	}
	return cfg
}

// =============================================================================
// Rendering
// =============================================================================

// cell is one canvas character with a style class.
type cell struct {
	r     rune
	style int
}

const (
	styleBlank = iota
	styleImage
	styleRegion
	styleSelected
	styleDraft
	styleLabel
)

var canvasStyles = map[int]lipgloss.Style{
	styleBlank:    lipgloss.NewStyle(),
	styleImage:    lipgloss.NewStyle().Foreground(colorDim),
	styleRegion:   lipgloss.NewStyle().Foreground(colorGray),
	styleSelected: lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
	styleDraft:    lipgloss.NewStyle().Foreground(colorYellow),
	styleLabel:    lipgloss.NewStyle().Foreground(colorWhite),
}

func canvasStyle(style int) lipgloss.Style {
	return canvasStyles[style]
}

func (m editModel) View() string {
	if m.width == 0 {
		return "loading..."
	}
	cols, rows := m.canvasSize()

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString(m.canvasView(cols, rows))
	b.WriteString(m.footerView())
	return b.String()
}

func (m editModel) headerView() string {
	parts := make([]string, 0, len(m.crumbs))
	for _, c := range m.crumbs {
		parts = append(parts, c.Name)
	}
	title := StyleTitle.Render(m.location.Name)
	if *m.dirty {
		title += StyleWarning.Render(" *")
	}
	crumbLine := StyleDim.Render(strings.Join(parts, " "+iconArrow+" "))
	return title + "\n" + crumbLine + "\n"
}

func (m editModel) canvasView(cols, rows int) string {
	grid := make([][]cell, rows)
	for i := range grid {
		grid[i] = make([]cell, cols)
		for j := range grid[i] {
			grid[i][j] = cell{r: ' '}
		}
	}
	if m.ctrl.Available() {
		layout := m.ctrl.Layout()
		m.paintImage(grid, layout)
		for _, r := range m.ctrl.ActiveRegions() {
			style := styleRegion
			if r.Selected {
				style = styleSelected
			}
			m.paintRect(grid, layout.NaturalToDisplay(r.Rect), style, r.Name)
		}
		if draft, ok := m.ctrl.DrawingRect(); ok {
			m.paintRect(grid, layout.NaturalToDisplay(draft), styleDraft, "")
		}
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(renderRow(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// paintImage shades the letterboxed image area so the mapped part of the
// canvas is visible.
func (m editModel) paintImage(grid [][]cell, layout editor.Layout) {
	x0, y0 := int(layout.OffsetX), int(layout.OffsetY/cellAspect)
	x1 := int(layout.OffsetX + layout.RenderedWidth)
	y1 := int((layout.OffsetY + layout.RenderedHeight) / cellAspect)
	for y := y0; y < y1 && y < len(grid); y++ {
		if y < 0 {
			continue
		}
		for x := x0; x < x1 && x < len(grid[y]); x++ {
			if x >= 0 {
				grid[y][x] = cell{r: '·', style: styleImage}
			}
		}
	}
}

// paintRect draws a box outline with its label inside.
func (m editModel) paintRect(grid [][]cell, r geometry.Rect, style int, label string) {
	x0, y0 := int(r.X), int(r.Y/cellAspect)
	x1, y1 := int(r.Right()), int(r.Bottom()/cellAspect)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	set := func(x, y int, ru rune, st int) {
		if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) {
			grid[y][x] = cell{r: ru, style: st}
		}
	}
	for x := x0; x <= x1; x++ {
		set(x, y0, '─', style)
		set(x, y1, '─', style)
	}
	for y := y0; y <= y1; y++ {
		set(x0, y, '│', style)
		set(x1, y, '│', style)
	}
	set(x0, y0, '┌', style)
	set(x1, y0, '┐', style)
	set(x0, y1, '└', style)
	set(x1, y1, '┘', style)

	if label == "" {
		return
	}
	maxLen := x1 - x0 - 1
	if maxLen <= 0 {
		return
	}
	runes := []rune(label)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	for i, ru := range runes {
		set(x0+1+i, y0+1, ru, styleLabel)
	}
}

// renderRow groups adjacent cells of one style into a single styled span.
func renderRow(row []cell) string {
	var b strings.Builder
	start := 0
	for i := 1; i <= len(row); i++ {
		if i < len(row) && row[i].style == row[start].style {
			continue
		}
		var span strings.Builder
		for _, c := range row[start:i] {
			span.WriteRune(c.r)
		}
		b.WriteString(canvasStyle(row[start].style).Render(span.String()))
		start = i
	}
	return b.String()
}

func (m editModel) footerView() string {
	if m.nameFocus {
		prompt := "name: " + m.nameBuffer + "▌"
		return StyleHighlight.Render(prompt) + "\n" +
			StyleDim.Render("enter confirm  esc cancel") + "\n"
	}

	state := "select"
	switch m.ctrl.State() {
	case editor.StateDrawing:
		state = "draw"
	case editor.StateDragging:
		state = "drag"
	case editor.StateResizing:
		state = "resize"
	}
	left := fmt.Sprintf("%d regions  %s  magnet:%s",
		len(m.ctrl.Regions()), state, m.ctrl.Magnetism().Mode)
	if sel, ok := m.ctrl.Selected(); ok {
		name := sel.Name
		if name == "" {
			name = "(unnamed)"
		}
		left += "  " + StyleHighlight.Render(name)
	}
	if m.status != "" {
		left += "  " + StyleDim.Render(m.status)
	}
	keys := StyleDim.Render("d draw  m magnet  n name  c copy  x delete  s save  q quit")
	return left + "\n" + keys + "\n"
}
