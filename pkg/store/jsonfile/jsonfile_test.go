package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "inventory.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustLocation(t *testing.T, s *Store, name, parentID string) inventory.Location {
	t.Helper()
	loc, err := s.CreateLocation(context.Background(), inventory.Location{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("CreateLocation(%s): %v", name, err)
	}
	return loc
}

func mustRegion(t *testing.T, s *Store, locID, name string) inventory.Region {
	t.Helper()
	r, err := s.CreateRegion(context.Background(), inventory.Region{
		LocationID: locID, Name: name, X: 10, Y: 10, Width: 100, Height: 50,
	})
	if err != nil {
		t.Fatalf("CreateRegion(%s): %v", name, err)
	}
	return r
}

func TestLocationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	garage := mustLocation(t, s, "Garage", "")
	if garage.ID == "" || garage.CreatedAt.IsZero() {
		t.Fatal("create did not assign id and timestamps")
	}

	shelf := mustLocation(t, s, "Shelf", garage.ID)

	got, err := s.Location(ctx, shelf.ID)
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if got.ParentID != garage.ID {
		t.Errorf("ParentID = %q, want %q", got.ParentID, garage.ID)
	}

	roots, err := s.Locations(ctx, store.LocationFilter{RootsOnly: true})
	if err != nil {
		t.Fatalf("Locations: %v", err)
	}
	if len(roots) != 1 || roots[0].ID != garage.ID {
		t.Errorf("roots = %v, want just the garage", roots)
	}

	children, err := s.Locations(ctx, store.LocationFilter{ParentID: garage.ID})
	if err != nil {
		t.Fatalf("Locations(parent): %v", err)
	}
	if len(children) != 1 || children[0].ID != shelf.ID {
		t.Errorf("children = %v, want just the shelf", children)
	}

	shelf.Name = "Top Shelf"
	updated, err := s.UpdateLocation(ctx, shelf)
	if err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if updated.Name != "Top Shelf" {
		t.Errorf("Name = %q after update", updated.Name)
	}
	if !updated.CreatedAt.Equal(shelf.CreatedAt) {
		t.Error("update changed CreatedAt")
	}

	if _, err := s.Location(ctx, "missing"); !inventory.IsNotFound(err) {
		t.Errorf("missing location error = %v", err)
	}
}

func TestLocationPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	loc := mustLocation(t, s, "Attic", "")
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Location(context.Background(), loc.ID)
	if err != nil {
		t.Fatalf("Location after reopen: %v", err)
	}
	if got.Name != "Attic" {
		t.Errorf("Name = %q after reopen", got.Name)
	}
}

func TestUpdateLocationRejectsCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustLocation(t, s, "A", "")
	b := mustLocation(t, s, "B", a.ID)

	a.ParentID = b.ID
	if _, err := s.UpdateLocation(ctx, a); !inventory.HasCode(err, inventory.ErrCodeInvalidInput) {
		t.Errorf("cycle accepted, err = %v", err)
	}
}

func TestDeleteLocationCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	garage := mustLocation(t, s, "Garage", "")
	shelf := mustLocation(t, s, "Shelf", garage.ID)
	region := mustRegion(t, s, garage.ID, "Toolbox")

	item, err := s.CreateItem(ctx, inventory.Item{
		Name: "Hammer", Quantity: 1, LocationID: garage.ID, RegionID: region.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if err := s.DeleteLocation(ctx, garage.ID); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}

	if _, err := s.Region(ctx, region.ID); !inventory.IsNotFound(err) {
		t.Errorf("region survived the cascade, err = %v", err)
	}

	got, err := s.Item(ctx, item.ID)
	if err != nil {
		t.Fatalf("item should survive: %v", err)
	}
	if got.LocationID != "" || got.RegionID != "" {
		t.Errorf("item still references deleted location: %+v", got)
	}

	child, err := s.Location(ctx, shelf.ID)
	if err != nil {
		t.Fatalf("child should survive: %v", err)
	}
	if child.ParentID != "" {
		t.Errorf("child not promoted to root, ParentID = %q", child.ParentID)
	}
}

func TestBreadcrumbs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	house := mustLocation(t, s, "House", "")
	garage := mustLocation(t, s, "Garage", house.ID)
	shelf := mustLocation(t, s, "Shelf", garage.ID)

	crumbs, err := s.Breadcrumbs(ctx, shelf.ID)
	if err != nil {
		t.Fatalf("Breadcrumbs: %v", err)
	}
	want := []string{"House", "Garage", "Shelf"}
	if len(crumbs) != len(want) {
		t.Fatalf("got %d crumbs, want %d", len(crumbs), len(want))
	}
	for i, name := range want {
		if crumbs[i].Name != name {
			t.Errorf("crumb %d = %q, want %q", i, crumbs[i].Name, name)
		}
	}

	if _, err := s.Breadcrumbs(ctx, "missing"); !inventory.IsNotFound(err) {
		t.Errorf("missing location error = %v", err)
	}
}

func TestRegionOrderPreserved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loc := mustLocation(t, s, "Pegboard", "")
	names := []string{"Zulu", "Alpha", "Mike"}
	for _, n := range names {
		mustRegion(t, s, loc.ID, n)
	}

	regions, err := s.RegionsByLocation(ctx, loc.ID)
	if err != nil {
		t.Fatalf("RegionsByLocation: %v", err)
	}
	for i, n := range names {
		if regions[i].Name != n {
			t.Errorf("region %d = %q, want %q (insertion order lost)", i, regions[i].Name, n)
		}
	}
}

func TestReplaceRegions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loc := mustLocation(t, s, "Cabinet", "")
	old := mustRegion(t, s, loc.ID, "Drawer 1")
	gone := mustRegion(t, s, loc.ID, "Drawer 2")

	item, err := s.CreateItem(ctx, inventory.Item{
		Name: "Tape", Quantity: 3, LocationID: loc.ID, RegionID: gone.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	replacement := []inventory.Region{
		{ID: old.ID, Name: "Drawer 1 renamed", X: 0, Y: 0, Width: 50, Height: 50},
		{Name: "Drawer 3", X: 60, Y: 0, Width: 50, Height: 50},
	}
	out, err := s.ReplaceRegions(ctx, loc.ID, replacement)
	if err != nil {
		t.Fatalf("ReplaceRegions: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d regions back, want 2", len(out))
	}
	if out[0].ID != old.ID || !out[0].CreatedAt.Equal(old.CreatedAt) {
		t.Error("surviving region lost its identity or CreatedAt")
	}
	if out[1].ID == "" {
		t.Error("new region got no id")
	}

	if _, err := s.Region(ctx, gone.ID); !inventory.IsNotFound(err) {
		t.Errorf("removed region still present, err = %v", err)
	}

	got, err := s.Item(ctx, item.ID)
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if got.RegionID != "" {
		t.Errorf("item still references removed region %q", got.RegionID)
	}
	if got.LocationID != loc.ID {
		t.Error("item lost its location")
	}
}

func TestItemJoinsAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loc := mustLocation(t, s, "Workbench", "")
	region := mustRegion(t, s, loc.ID, "Left drawer")

	item, err := s.CreateItem(ctx, inventory.Item{
		Name: "Calipers", Quantity: 1, LocationID: loc.ID, RegionID: region.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.LocationName != "Workbench" || item.RegionName != "Left drawer" {
		t.Errorf("join missing: %+v", item)
	}

	if _, err := s.CreateItem(ctx, inventory.Item{Name: "Loose screw", Quantity: 10}); err != nil {
		t.Fatalf("CreateItem unplaced: %v", err)
	}

	placed, err := s.Items(ctx, store.ItemFilter{LocationID: loc.ID})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(placed) != 1 || placed[0].ID != item.ID {
		t.Errorf("location filter returned %v", placed)
	}

	byRegion, err := s.Items(ctx, store.ItemFilter{RegionID: region.ID})
	if err != nil {
		t.Fatalf("Items(region): %v", err)
	}
	if len(byRegion) != 1 {
		t.Errorf("region filter returned %d items", len(byRegion))
	}

	all, err := s.Items(ctx, store.ItemFilter{})
	if err != nil {
		t.Fatalf("Items(all): %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unfiltered listing returned %d items", len(all))
	}
}

func TestItemRefValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	locA := mustLocation(t, s, "A", "")
	locB := mustLocation(t, s, "B", "")
	regionB := mustRegion(t, s, locB.ID, "Bin")

	// Region belongs to B, item claims A.
	_, err := s.CreateItem(ctx, inventory.Item{
		Name: "Mismatched", Quantity: 1, LocationID: locA.ID, RegionID: regionB.ID,
	})
	if !inventory.HasCode(err, inventory.ErrCodeInvalidInput) {
		t.Errorf("cross-location region accepted, err = %v", err)
	}

	_, err = s.CreateItem(ctx, inventory.Item{Name: "Orphan", Quantity: 1, LocationID: "missing"})
	if !inventory.IsNotFound(err) {
		t.Errorf("missing location accepted, err = %v", err)
	}
}

func TestSearchItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, it := range []inventory.Item{
		{Name: "Phillips screwdriver", Quantity: 2},
		{Name: "Flathead screwdriver", Quantity: 1},
		{Name: "Socket set", Description: "includes a screwdriver bit", Quantity: 1},
		{Name: "Duct tape", Quantity: 4},
	} {
		if _, err := s.CreateItem(ctx, it); err != nil {
			t.Fatalf("CreateItem(%s): %v", it.Name, err)
		}
	}

	hits, err := s.SearchItems(ctx, "SCREWDRIVER")
	if err != nil {
		t.Fatalf("SearchItems: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("got %d hits, want 3 (name and description matches)", len(hits))
	}

	none, err := s.SearchItems(ctx, "   ")
	if err != nil {
		t.Fatalf("SearchItems(blank): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("blank query returned %d items", len(none))
	}
}

func TestDeleteRegionDetachesItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loc := mustLocation(t, s, "Closet", "")
	region := mustRegion(t, s, loc.ID, "Top shelf")
	item, err := s.CreateItem(ctx, inventory.Item{
		Name: "Blanket", Quantity: 1, LocationID: loc.ID, RegionID: region.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if err := s.DeleteRegion(ctx, region.ID); err != nil {
		t.Fatalf("DeleteRegion: %v", err)
	}
	got, err := s.Item(ctx, item.ID)
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if got.RegionID != "" {
		t.Error("item still references deleted region")
	}
	if got.LocationID != loc.ID {
		t.Error("item lost its location")
	}
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Location(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want wrap of store.ErrNotFound", err)
	}
}
