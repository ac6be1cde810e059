// Package store defines the storage contract of the inventory tracker and
// the sentinel errors shared by its backends.
//
// Five interchangeable implementations exist, one per subpackage:
//   - sqlite: relational single-file storage (no CGO)
//   - jsonfile: plain JSON documents in a data directory
//   - redis: key-value storage for multi-instance deployments
//   - mongo: document storage
//   - remote: proxy speaking another shelfmap server's REST API
//
// All backends satisfy [Store]; callers select one by configuration and
// never notice the difference. Region order within a location is
// significant (it is the editor's draw order) and must be preserved by
// every backend.
package store

import (
	"context"
	"errors"

	"github.com/shelfmap/shelfmap/pkg/inventory"
)

// ErrNotFound is returned when a requested entity does not exist.
// Backends wrap it with an inventory error code identifying the entity.
var ErrNotFound = errors.New("not found")

// LocationFilter narrows a location listing. The zero value lists
// everything.
type LocationFilter struct {
	// ParentID lists only the children of one location.
	ParentID string
	// RootsOnly lists only locations without a parent.
	RootsOnly bool
}

// ItemFilter narrows an item listing. The zero value lists everything.
type ItemFilter struct {
	LocationID string
	RegionID   string
}

// Store is the storage contract. Create methods assign the id and
// timestamps when the entity carries none, and return the stored entity.
type Store interface {
	// Locations
	CreateLocation(ctx context.Context, loc inventory.Location) (inventory.Location, error)
	Location(ctx context.Context, id string) (inventory.Location, error)
	Locations(ctx context.Context, f LocationFilter) ([]inventory.Location, error)
	UpdateLocation(ctx context.Context, loc inventory.Location) (inventory.Location, error)
	// DeleteLocation cascades to the location's regions and detaches its
	// items; the items themselves survive.
	DeleteLocation(ctx context.Context, id string) error
	// Breadcrumbs returns the ancestry chain of a location, root first,
	// ending with the location itself.
	Breadcrumbs(ctx context.Context, id string) ([]inventory.Breadcrumb, error)

	// Regions
	CreateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error)
	Region(ctx context.Context, id string) (inventory.Region, error)
	RegionsByLocation(ctx context.Context, locationID string) ([]inventory.Region, error)
	UpdateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error)
	DeleteRegion(ctx context.Context, id string) error
	// ReplaceRegions swaps a location's entire region set in one call.
	// This is the operation the editor's full-replacement handoff maps
	// onto; incremental patching is deliberately not offered.
	ReplaceRegions(ctx context.Context, locationID string, regions []inventory.Region) ([]inventory.Region, error)

	// Items
	CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error)
	Item(ctx context.Context, id string) (inventory.Item, error)
	Items(ctx context.Context, f ItemFilter) ([]inventory.Item, error)
	UpdateItem(ctx context.Context, item inventory.Item) (inventory.Item, error)
	DeleteItem(ctx context.Context, id string) error
	// SearchItems matches name and description, case-insensitively.
	SearchItems(ctx context.Context, query string) ([]inventory.Item, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
