package inventory

import (
	"time"

	"github.com/shelfmap/shelfmap/pkg/editor"
	"github.com/shelfmap/shelfmap/pkg/geometry"
)

// Location is a place items can be stored: a room, a cabinet, a drawer.
// Locations nest via ParentID; a root location has an empty ParentID.
type Location struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	ParentID    string    `json:"parentId,omitempty" bson:"parent_id,omitempty"`
	ImagePath   string    `json:"imagePath,omitempty" bson:"image_path,omitempty"`
	ImageWidth  float64   `json:"imageWidth,omitempty" bson:"image_width,omitempty"`
	ImageHeight float64   `json:"imageHeight,omitempty" bson:"image_height,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// ImageSize returns the intrinsic size of the location's image.
func (l Location) ImageSize() geometry.Size {
	return geometry.Size{Width: l.ImageWidth, Height: l.ImageHeight}
}

// Region is a named rectangle over a location's image, in natural pixel
// coordinates.
type Region struct {
	ID         string    `json:"id" bson:"_id"`
	LocationID string    `json:"locationId" bson:"location_id"`
	Name       string    `json:"name" bson:"name"`
	X          float64   `json:"x" bson:"x"`
	Y          float64   `json:"y" bson:"y"`
	Width      float64   `json:"width" bson:"width"`
	Height     float64   `json:"height" bson:"height"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updated_at"`
}

// Rect returns the region's rectangle.
func (r Region) Rect() geometry.Rect {
	return geometry.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Center returns the region's center point, used for LED positioning.
func (r Region) Center() geometry.Point {
	return r.Rect().Center()
}

// EditorRegion converts to the editor's lightweight region type.
func (r Region) EditorRegion() editor.Region {
	return editor.Region{ID: r.ID, Name: r.Name, Rect: r.Rect()}
}

// RegionFromEditor lifts an editor region back into the domain, attached to
// a location. Timestamps are left zero; the store fills them in.
func RegionFromEditor(locationID string, er editor.Region) Region {
	return Region{
		ID:         er.ID,
		LocationID: locationID,
		Name:       er.Name,
		X:          er.Rect.X,
		Y:          er.Rect.Y,
		Width:      er.Rect.Width,
		Height:     er.Rect.Height,
	}
}

// Item is a physical thing stored somewhere. LocationID and RegionID are
// optional; an item without them is merely known to exist.
type Item struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	Quantity     int       `json:"quantity" bson:"quantity"`
	ImagePath    string    `json:"imagePath,omitempty" bson:"image_path,omitempty"`
	LocationID   string    `json:"locationId,omitempty" bson:"location_id,omitempty"`
	RegionID     string    `json:"regionId,omitempty" bson:"region_id,omitempty"`
	LocationName string    `json:"locationName,omitempty" bson:"-"`
	RegionName   string    `json:"regionName,omitempty" bson:"-"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// Breadcrumb is one step of a location's ancestry chain, root first.
type Breadcrumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LEDTarget is the answer to "where is this item": the region's center in
// natural image coordinates, for driving a physical position indicator.
type LEDTarget struct {
	Item     Item           `json:"item"`
	Location Location       `json:"location"`
	Region   Region         `json:"region"`
	Position geometry.Point `json:"ledPosition"`
}
