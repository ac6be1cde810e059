package remote

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/shelfmap/shelfmap/internal/server"
	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
	"github.com/shelfmap/shelfmap/pkg/store/jsonfile"
)

// newTestRemote stands up a real API server over a jsonfile store and
// returns a remote store speaking to it.
func newTestRemote(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	backend, err := jsonfile.Open(filepath.Join(dir, "inventory.json"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	srv, err := server.New(server.Options{
		Store:      backend,
		UploadsDir: filepath.Join(dir, "uploads"),
		Logger:     log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		backend.Close()
	})

	remote, err := Open(Config{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { remote.Close() })
	return remote
}

func TestRemoteLifecycle(t *testing.T) {
	s := newTestRemote(t)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	loc, err := s.CreateLocation(ctx, inventory.Location{Name: "Garage"})
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if loc.ID == "" {
		t.Fatal("no id assigned")
	}

	regions, err := s.ReplaceRegions(ctx, loc.ID, []inventory.Region{
		{Name: "Toolbox", X: 10, Y: 10, Width: 100, Height: 50},
	})
	if err != nil {
		t.Fatalf("ReplaceRegions: %v", err)
	}
	if len(regions) != 1 || regions[0].ID == "" {
		t.Fatalf("regions = %v", regions)
	}

	item, err := s.CreateItem(ctx, inventory.Item{
		Name: "Hammer", Quantity: 1, LocationID: loc.ID, RegionID: regions[0].ID,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.LocationName != "Garage" || item.RegionName != "Toolbox" {
		t.Errorf("join missing: %+v", item)
	}

	hits, err := s.SearchItems(ctx, "ham")
	if err != nil {
		t.Fatalf("SearchItems: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != item.ID {
		t.Errorf("hits = %v", hits)
	}

	crumbs, err := s.Breadcrumbs(ctx, loc.ID)
	if err != nil {
		t.Fatalf("Breadcrumbs: %v", err)
	}
	if len(crumbs) != 1 || crumbs[0].Name != "Garage" {
		t.Errorf("crumbs = %v", crumbs)
	}

	if err := s.DeleteLocation(ctx, loc.ID); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}
	got, err := s.Item(ctx, item.ID)
	if err != nil {
		t.Fatalf("Item after cascade: %v", err)
	}
	if got.LocationID != "" || got.RegionID != "" {
		t.Errorf("item still placed after cascade: %+v", got)
	}
}

func TestRemoteNotFoundMapping(t *testing.T) {
	s := newTestRemote(t)
	ctx := context.Background()

	_, err := s.Location(ctx, "missing")
	if !inventory.IsNotFound(err) {
		t.Errorf("err = %v, want a not-found code", err)
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want wrap of store.ErrNotFound", err)
	}
	if inventory.GetCode(err) != inventory.ErrCodeLocationNotFound {
		t.Errorf("code = %q", inventory.GetCode(err))
	}
}

func TestRemoteValidationPassthrough(t *testing.T) {
	s := newTestRemote(t)
	_, err := s.CreateLocation(context.Background(), inventory.Location{Name: ""})
	if inventory.GetCode(err) != inventory.ErrCodeInvalidName {
		t.Errorf("code = %q, err = %v", inventory.GetCode(err), err)
	}
}

func TestOpenRejectsEmptyURL(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("empty base URL accepted")
	}
}
