package editor

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/shelfmap/shelfmap/pkg/geometry"
)

// Geometry constants, in natural pixels unless noted otherwise.
const (
	// MinSize is the smallest committed region dimension. Draw gestures
	// below it are discarded; resizes are floored at it.
	MinSize = 10.0

	// DuplicateOffset is the position delta applied to a duplicated region.
	DuplicateOffset = 20.0

	// ResizeHitBox is the side length, in display pixels, of the square hit
	// area centered on the selected region's bottom-right corner.
	ResizeHitBox = 32.0

	// namingPad is the display-pixel gap between a region and its naming
	// anchor.
	namingPad = 8.0
)

// State identifies the controller's pointer-interaction state.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateDragging
	StateResizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	}
	return "unknown"
}

// Naming describes the naming overlay. It is a sub-state layered on top of
// a selection: pointer events keep flowing while it is open, and a click on
// empty space closes it without committing.
type Naming struct {
	Open     bool
	RegionID string
	// Initial is the value the input is pre-filled with.
	Initial string
	// Anchor is where the host should place the naming UI, in display
	// coordinates, already flipped away from container overflow.
	Anchor geometry.Point
}

// Options configures a Controller.
type Options struct {
	// Image is the natural size of the location image. It may be zero at
	// construction and supplied later via [Controller.SetImageSize]; all
	// pointer interaction is suspended until it is valid.
	Image geometry.Size

	// Container is the rendered size of the host container.
	Container geometry.Size

	// Regions is the initial region set.
	Regions []Region

	// Magnetism configures snapping. A zero value disables it.
	Magnetism MagnetConfig

	// AutoStartDrawing enters drawing mode immediately.
	AutoStartDrawing bool

	// OnRegionsChanged receives the full replacement region set after every
	// committed mutation whose persistent fields actually changed.
	OnRegionsChanged func([]Region)

	// OnDrawingStateChanged reports entering and leaving drawing mode, so a
	// host toggle can track the controller.
	OnDrawingStateChanged func(bool)

	Logger *log.Logger
}

// Controller owns the pointer-driven region editing state machine. It is
// advanced exclusively by the host's single interaction goroutine; it does
// no locking, no I/O and no background work.
type Controller struct {
	mapper *Mapper
	magnet MagnetConfig
	logger *log.Logger

	state   State
	regions []ActiveRegion
	naming  Naming

	selectedID string

	drawActive  bool
	drawStart   geometry.Point
	drawCurrent geometry.Point

	dragLast    geometry.Point
	resizeStart geometry.Point
	resizeBase  geometry.Size

	lastDisplay geometry.Point
	lastSig     string

	onRegions func([]Region)
	onDrawing func(bool)
}

// New creates a controller for the given options.
func New(opts Options) *Controller {
	if opts.Magnetism.Mode == "" {
		opts.Magnetism.Mode = MagnetNone
	}
	if opts.Magnetism.Threshold <= 0 {
		opts.Magnetism.Threshold = DefaultThreshold
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	m := NewMapper()
	m.SetContainerSize(opts.Container)
	m.SetNaturalSize(opts.Image)

	regions := make([]ActiveRegion, 0, len(opts.Regions))
	for _, r := range opts.Regions {
		regions = append(regions, ActiveRegion{Region: r})
	}

	c := &Controller{
		mapper:    m,
		magnet:    opts.Magnetism,
		logger:    opts.Logger,
		regions:   regions,
		lastSig:   signature(regions),
		onRegions: opts.OnRegionsChanged,
		onDrawing: opts.OnDrawingStateChanged,
	}
	if opts.AutoStartDrawing {
		c.BeginDrawing()
	}
	return c
}

// =============================================================================
// Host-facing accessors
// =============================================================================

// State returns the current interaction state.
func (c *Controller) State() State { return c.state }

// Available reports whether the image has valid intrinsic dimensions.
// While false, pointer events are ignored.
func (c *Controller) Available() bool { return c.mapper.Available() }

// Layout returns the current coordinate layout for rendering.
func (c *Controller) Layout() Layout { return c.mapper.Layout() }

// NamingState returns the naming overlay state.
func (c *Controller) NamingState() Naming { return c.naming }

// Regions returns a snapshot of the persistent region set.
func (c *Controller) Regions() []Region {
	out := make([]Region, len(c.regions))
	for i, r := range c.regions {
		out[i] = r.Region
	}
	return out
}

// ActiveRegions returns a snapshot including transient flags, for rendering.
func (c *Controller) ActiveRegions() []ActiveRegion {
	out := make([]ActiveRegion, len(c.regions))
	copy(out, c.regions)
	return out
}

// Selected returns the selected region, if any.
func (c *Controller) Selected() (ActiveRegion, bool) {
	if i := c.indexOf(c.selectedID); i >= 0 {
		return c.regions[i], true
	}
	return ActiveRegion{}, false
}

// SetMagnetism replaces the snap configuration.
func (c *Controller) SetMagnetism(cfg MagnetConfig) {
	if cfg.Mode == "" {
		cfg.Mode = MagnetNone
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	c.magnet = cfg
}

// Magnetism returns the current snap configuration.
func (c *Controller) Magnetism() MagnetConfig { return c.magnet }

// SetContainerSize must be called on every container resize notification.
func (c *Controller) SetContainerSize(s geometry.Size) {
	c.mapper.SetContainerSize(s)
	c.repositionNaming()
}

// SetImageSize must be called once the image's intrinsic size is known.
func (c *Controller) SetImageSize(s geometry.Size) {
	c.mapper.SetNaturalSize(s)
	c.repositionNaming()
}

// =============================================================================
// Drawing mode toggle
// =============================================================================

// BeginDrawing forces the controller into drawing mode from any state,
// clearing the selection first. It replaces the out-of-band "start drawing"
// trigger of the host UI.
func (c *Controller) BeginDrawing() {
	c.clearSelection()
	c.naming = Naming{}
	c.drawActive = false
	if c.state != StateDrawing {
		c.state = StateDrawing
		c.emitDrawing(true)
	}
}

// CancelDrawing leaves drawing mode without committing anything.
func (c *Controller) CancelDrawing() {
	if c.state != StateDrawing {
		return
	}
	c.drawActive = false
	c.state = StateIdle
	c.emitDrawing(false)
}

// DrawingRect returns the provisional rectangle of an in-flight draw
// gesture, in natural coordinates. The second result is false when no draw
// is in progress. The provisional rect may be below MinSize.
func (c *Controller) DrawingRect() (geometry.Rect, bool) {
	if c.state != StateDrawing || !c.drawActive {
		return geometry.Rect{}, false
	}
	return geometry.Normalized(c.drawStart, c.drawCurrent), true
}

// =============================================================================
// Pointer events (display coordinates)
// =============================================================================

// PointerDown dispatches a pointer press at display point p.
func (c *Controller) PointerDown(p geometry.Point) {
	if !c.Available() {
		return
	}
	c.lastDisplay = p

	if c.state == StateDrawing {
		np := c.clampNatural(c.mapper.Layout().DisplayToNatural(p))
		c.drawStart, c.drawCurrent = np, np
		c.drawActive = true
		return
	}

	if sel, ok := c.Selected(); ok && c.inResizeHitBox(p, sel.Rect) {
		i := c.indexOf(sel.ID)
		c.regions[i].Resizing = true
		c.state = StateResizing
		c.resizeStart = c.clampNatural(c.mapper.Layout().DisplayToNatural(p))
		c.resizeBase = geometry.Size{Width: sel.Rect.Width, Height: sel.Rect.Height}
		return
	}

	np := c.mapper.Layout().DisplayToNatural(p)
	for i := len(c.regions) - 1; i >= 0; i-- {
		if !c.regions[i].Rect.Contains(np) {
			continue
		}
		id := c.regions[i].ID
		c.selectOnly(id)
		c.regions[i].Dragging = true
		c.state = StateDragging
		c.dragLast = c.clampNatural(np)
		c.openNaming(id)
		return
	}

	// Empty space: drop selection and close the naming overlay. Closing by
	// outside click never rolls back; only an explicit cancel does.
	c.clearSelection()
	c.naming = Naming{}
	c.state = StateIdle
}

// PointerMove dispatches a pointer move at display point p.
func (c *Controller) PointerMove(p geometry.Point) {
	if !c.Available() {
		return
	}
	c.lastDisplay = p

	switch c.state {
	case StateDrawing:
		if c.drawActive {
			c.drawCurrent = c.clampNatural(c.mapper.Layout().DisplayToNatural(p))
		}

	case StateDragging:
		i := c.indexOf(c.selectedID)
		if i < 0 {
			return
		}
		np := c.clampNatural(c.mapper.Layout().DisplayToNatural(p))
		r := c.regions[i].Rect
		r.X += np.X - c.dragLast.X
		r.Y += np.Y - c.dragLast.Y
		r = r.ClampInto(c.mapper.Natural())
		if c.magnet.Mode != MagnetNone {
			cands := BuildCandidates(c.regions, c.selectedID, c.mapper.Natural(), c.magnet)
			r = cands.ApplyDrag(r, c.magnet.Threshold).ClampInto(c.mapper.Natural())
		}
		c.regions[i].Rect = r
		c.dragLast = np
		c.repositionNaming()

	case StateResizing:
		i := c.indexOf(c.selectedID)
		if i < 0 {
			return
		}
		np := c.clampNatural(c.mapper.Layout().DisplayToNatural(p))
		r := c.regions[i].Rect
		image := c.mapper.Natural()
		r.Width = c.clampDim(c.resizeBase.Width+np.X-c.resizeStart.X, image.Width-r.X)
		r.Height = c.clampDim(c.resizeBase.Height+np.Y-c.resizeStart.Y, image.Height-r.Y)
		if c.magnet.Mode != MagnetNone {
			cands := BuildCandidates(c.regions, c.selectedID, image, c.magnet)
			r = cands.ApplyResize(r, c.magnet.Threshold)
			// A snapped edge can land outside the image or below the
			// minimum; the clamp always has the last word.
			r.Width = c.clampDim(r.Width, image.Width-r.X)
			r.Height = c.clampDim(r.Height, image.Height-r.Y)
		}
		c.regions[i].Rect = r
	}
}

// PointerUp dispatches a pointer release at display point p.
func (c *Controller) PointerUp(p geometry.Point) {
	if !c.Available() {
		return
	}
	c.lastDisplay = p

	switch c.state {
	case StateDragging, StateResizing:
		if i := c.indexOf(c.selectedID); i >= 0 {
			c.regions[i].Dragging = false
			c.regions[i].Resizing = false
		}
		c.state = StateIdle
		c.notify()

	case StateDrawing:
		if !c.drawActive {
			return
		}
		c.PointerMove(p)
		r, _ := c.DrawingRect()
		c.drawActive = false
		c.state = StateIdle
		c.emitDrawing(false)

		if r.Width < MinSize || r.Height < MinSize {
			c.logger.Debug("draw gesture below minimum size, discarded",
				"width", r.Width, "height", r.Height)
			return
		}
		id := uuid.NewString()
		c.regions = append(c.regions, ActiveRegion{Region: Region{ID: id, Rect: r}})
		c.selectOnly(id)
		c.openNaming(id)
		c.notify()
	}
}

// PointerLeave is treated as a pointer release at the last observed
// position, so a gesture can never stay stuck engaged.
func (c *Controller) PointerLeave() {
	c.PointerUp(c.lastDisplay)
}

// =============================================================================
// Naming
// =============================================================================

// CommitName sets the name on the region being named and closes the
// overlay.
func (c *Controller) CommitName(name string) {
	if !c.naming.Open {
		return
	}
	id := c.naming.RegionID
	c.naming = Naming{}
	c.Rename(id, name)
}

// CancelNaming closes the overlay. If the named region's name is still
// empty it is removed: this rolls back a freshly drawn region whose naming
// was abandoned, and is the only path by which a cancel mutates state.
func (c *Controller) CancelNaming() {
	if !c.naming.Open {
		return
	}
	id := c.naming.RegionID
	c.naming = Naming{}
	if i := c.indexOf(id); i >= 0 && c.regions[i].Name == "" {
		c.removeAt(i)
		c.notify()
	}
}

// =============================================================================
// Region operations
// =============================================================================

// Rename sets a region's name. Unknown ids are logged no-ops: the UI
// issuing them is decoupled from the authoritative set.
func (c *Controller) Rename(id, name string) {
	i := c.indexOf(id)
	if i < 0 {
		c.logger.Warn("rename: unknown region id", "id", id)
		return
	}
	c.regions[i].Name = name
	c.notify()
}

// Duplicate clones a region, offsetting the copy by DuplicateOffset and
// clamping it into the image. The clone is appended, selected, and opened
// for naming.
func (c *Controller) Duplicate(id string) {
	i := c.indexOf(id)
	if i < 0 {
		c.logger.Warn("duplicate: unknown region id", "id", id)
		return
	}
	orig := c.regions[i]

	name := "Region (copy)"
	if orig.Name != "" {
		name = orig.Name + " (copy)"
	}
	r := orig.Rect
	r.X += DuplicateOffset
	r.Y += DuplicateOffset
	r = r.ClampInto(c.mapper.Natural())

	clone := ActiveRegion{Region: Region{ID: uuid.NewString(), Name: name, Rect: r}}
	c.regions = append(c.regions, clone)
	c.selectOnly(clone.ID)
	c.openNaming(clone.ID)
	c.notify()
}

// Remove deletes a region by id, preserving the order of the remainder.
// If it was selected, the selection and naming overlay are cleared.
func (c *Controller) Remove(id string) {
	i := c.indexOf(id)
	if i < 0 {
		c.logger.Warn("remove: unknown region id", "id", id)
		return
	}
	c.removeAt(i)
	c.notify()
}

func (c *Controller) removeAt(i int) {
	id := c.regions[i].ID
	c.regions = append(c.regions[:i], c.regions[i+1:]...)
	if c.selectedID == id {
		c.selectedID = ""
		c.naming = Naming{}
	}
}

// =============================================================================
// Internals
// =============================================================================

func (c *Controller) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range c.regions {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) selectOnly(id string) {
	c.selectedID = id
	for i := range c.regions {
		c.regions[i].Selected = c.regions[i].ID == id
	}
}

func (c *Controller) clearSelection() {
	c.selectedID = ""
	for i := range c.regions {
		c.regions[i].Selected = false
		c.regions[i].Dragging = false
		c.regions[i].Resizing = false
	}
}

func (c *Controller) clampNatural(p geometry.Point) geometry.Point {
	image := c.mapper.Natural()
	return geometry.Point{
		X: geometry.Clamp(p.X, 0, image.Width),
		Y: geometry.Clamp(p.Y, 0, image.Height),
	}
}

func (c *Controller) clampDim(v, maxV float64) float64 {
	if v < MinSize {
		v = MinSize
	}
	if v > maxV {
		v = maxV
	}
	return v
}

// inResizeHitBox tests p against the fixed-size display-space square
// centered on the region's bottom-right corner.
func (c *Controller) inResizeHitBox(p geometry.Point, r geometry.Rect) bool {
	dr := c.mapper.Layout().NaturalToDisplay(r)
	corner := geometry.Point{X: dr.Right(), Y: dr.Bottom()}
	half := ResizeHitBox / 2
	return p.X >= corner.X-half && p.X <= corner.X+half &&
		p.Y >= corner.Y-half && p.Y <= corner.Y+half
}

func (c *Controller) openNaming(id string) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.naming = Naming{
		Open:     true,
		RegionID: id,
		Initial:  c.regions[i].Name,
		Anchor:   c.namingAnchor(c.regions[i].Rect),
	}
}

func (c *Controller) repositionNaming() {
	if !c.naming.Open {
		return
	}
	if i := c.indexOf(c.naming.RegionID); i >= 0 {
		c.naming.Anchor = c.namingAnchor(c.regions[i].Rect)
	}
}

// namingAnchor places the naming UI just below the region's bottom-left
// corner, flipping above the top edge when it would overflow the container.
func (c *Controller) namingAnchor(r geometry.Rect) geometry.Point {
	dr := c.mapper.Layout().NaturalToDisplay(r)
	container := c.mapper.Container()

	a := geometry.Point{X: dr.X, Y: dr.Bottom() + namingPad}
	if a.Y > container.Height-namingPad {
		a.Y = dr.Y - namingPad
	}
	a.X = geometry.Clamp(a.X, 0, container.Width)
	a.Y = geometry.Clamp(a.Y, 0, container.Height)
	return a
}

func (c *Controller) emitDrawing(on bool) {
	if c.onDrawing != nil {
		c.onDrawing(on)
	}
}

// notify hands the full replacement region set to the host, exactly once
// per committed mutation. Sets whose persistent fields are unchanged since
// the last notification are suppressed.
func (c *Controller) notify() {
	sig := signature(c.regions)
	if sig == c.lastSig {
		return
	}
	c.lastSig = sig
	if c.onRegions != nil {
		c.onRegions(c.Regions())
	}
}
