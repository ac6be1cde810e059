// Package editor implements the interactive region editor core: a
// pointer-driven state machine for drawing, moving, resizing, naming,
// duplicating and deleting named rectangles ("regions") over a location
// image.
//
// The package is UI-agnostic and performs no I/O. Hosts feed it raw pointer
// events in display coordinates and receive the full updated region set
// through a single callback whenever a mutation is committed. Three pieces
// cooperate:
//
//   - [Layout] / [Mapper]: contain-fit letterboxing between the image's
//     natural pixel space and the rendered container, with bidirectional
//     point conversion.
//   - [Candidates] / [BuildCandidates]: magnetic alignment ("snapping") of a
//     dragged or resized rectangle to sibling edges, centers and the image
//     boundary.
//   - [Controller]: the state machine tying the two together and owning the
//     region set between host notifications.
//
// All geometry handed to hosts is in natural coordinates; only pointer
// input and naming-anchor output are in display coordinates.
package editor
