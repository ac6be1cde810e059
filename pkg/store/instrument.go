package store

import (
	"context"
	"time"

	"github.com/shelfmap/shelfmap/pkg/inventory"
)

// WithHooks wraps a backend so every operation is reported to the
// registered [Hooks]. The backend string identifies the implementation in
// hook events ("sqlite", "jsonfile", ...).
func WithHooks(inner Store, backend string) Store {
	return &instrumented{inner: inner, backend: backend}
}

type instrumented struct {
	inner   Store
	backend string
}

func (s *instrumented) observe(ctx context.Context, op string, start time.Time, err error) {
	Observe(ctx, s.backend, op, start, err)
}

func (s *instrumented) CreateLocation(ctx context.Context, loc inventory.Location) (out inventory.Location, err error) {
	start := time.Now()
	out, err = s.inner.CreateLocation(ctx, loc)
	s.observe(ctx, "CreateLocation", start, err)
	return out, err
}

func (s *instrumented) Location(ctx context.Context, id string) (out inventory.Location, err error) {
	start := time.Now()
	out, err = s.inner.Location(ctx, id)
	s.observe(ctx, "Location", start, err)
	return out, err
}

func (s *instrumented) Locations(ctx context.Context, f LocationFilter) (out []inventory.Location, err error) {
	start := time.Now()
	out, err = s.inner.Locations(ctx, f)
	s.observe(ctx, "Locations", start, err)
	return out, err
}

func (s *instrumented) UpdateLocation(ctx context.Context, loc inventory.Location) (out inventory.Location, err error) {
	start := time.Now()
	out, err = s.inner.UpdateLocation(ctx, loc)
	s.observe(ctx, "UpdateLocation", start, err)
	return out, err
}

func (s *instrumented) DeleteLocation(ctx context.Context, id string) (err error) {
	start := time.Now()
	err = s.inner.DeleteLocation(ctx, id)
	s.observe(ctx, "DeleteLocation", start, err)
	return err
}

func (s *instrumented) Breadcrumbs(ctx context.Context, id string) (out []inventory.Breadcrumb, err error) {
	start := time.Now()
	out, err = s.inner.Breadcrumbs(ctx, id)
	s.observe(ctx, "Breadcrumbs", start, err)
	return out, err
}

func (s *instrumented) CreateRegion(ctx context.Context, r inventory.Region) (out inventory.Region, err error) {
	start := time.Now()
	out, err = s.inner.CreateRegion(ctx, r)
	s.observe(ctx, "CreateRegion", start, err)
	return out, err
}

func (s *instrumented) Region(ctx context.Context, id string) (out inventory.Region, err error) {
	start := time.Now()
	out, err = s.inner.Region(ctx, id)
	s.observe(ctx, "Region", start, err)
	return out, err
}

func (s *instrumented) RegionsByLocation(ctx context.Context, locationID string) (out []inventory.Region, err error) {
	start := time.Now()
	out, err = s.inner.RegionsByLocation(ctx, locationID)
	s.observe(ctx, "RegionsByLocation", start, err)
	return out, err
}

func (s *instrumented) UpdateRegion(ctx context.Context, r inventory.Region) (out inventory.Region, err error) {
	start := time.Now()
	out, err = s.inner.UpdateRegion(ctx, r)
	s.observe(ctx, "UpdateRegion", start, err)
	return out, err
}

func (s *instrumented) DeleteRegion(ctx context.Context, id string) (err error) {
	start := time.Now()
	err = s.inner.DeleteRegion(ctx, id)
	s.observe(ctx, "DeleteRegion", start, err)
	return err
}

func (s *instrumented) ReplaceRegions(ctx context.Context, locationID string, regions []inventory.Region) (out []inventory.Region, err error) {
	start := time.Now()
	out, err = s.inner.ReplaceRegions(ctx, locationID, regions)
	s.observe(ctx, "ReplaceRegions", start, err)
	return out, err
}

func (s *instrumented) CreateItem(ctx context.Context, item inventory.Item) (out inventory.Item, err error) {
	start := time.Now()
	out, err = s.inner.CreateItem(ctx, item)
	s.observe(ctx, "CreateItem", start, err)
	return out, err
}

func (s *instrumented) Item(ctx context.Context, id string) (out inventory.Item, err error) {
	start := time.Now()
	out, err = s.inner.Item(ctx, id)
	s.observe(ctx, "Item", start, err)
	return out, err
}

func (s *instrumented) Items(ctx context.Context, f ItemFilter) (out []inventory.Item, err error) {
	start := time.Now()
	out, err = s.inner.Items(ctx, f)
	s.observe(ctx, "Items", start, err)
	return out, err
}

func (s *instrumented) UpdateItem(ctx context.Context, item inventory.Item) (out inventory.Item, err error) {
	start := time.Now()
	out, err = s.inner.UpdateItem(ctx, item)
	s.observe(ctx, "UpdateItem", start, err)
	return out, err
}

func (s *instrumented) DeleteItem(ctx context.Context, id string) (err error) {
	start := time.Now()
	err = s.inner.DeleteItem(ctx, id)
	s.observe(ctx, "DeleteItem", start, err)
	return err
}

func (s *instrumented) SearchItems(ctx context.Context, query string) (out []inventory.Item, err error) {
	start := time.Now()
	out, err = s.inner.SearchItems(ctx, query)
	s.observe(ctx, "SearchItems", start, err)
	return out, err
}

func (s *instrumented) Ping(ctx context.Context) (err error) {
	start := time.Now()
	err = s.inner.Ping(ctx)
	s.observe(ctx, "Ping", start, err)
	return err
}

func (s *instrumented) Close() error { return s.inner.Close() }

var _ Store = (*instrumented)(nil)
