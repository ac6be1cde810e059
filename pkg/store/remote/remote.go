// Package remote implements the store contract as a client of another
// shelfmap server's REST API. It lets the TUI editor run on one machine
// against an inventory served from another.
package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shelfmap/shelfmap/pkg/httputil"
	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// Config holds remote server settings.
type Config struct {
	// BaseURL is the server root, e.g. "http://shelfmap.local:8080".
	BaseURL string
	// Timeout applies per request; defaults to 10 seconds.
	Timeout time.Duration
	// Attempts is the retry budget for transient failures; defaults to 3.
	Attempts int
}

// Store proxies every operation to a remote shelfmap server.
type Store struct {
	base     string
	client   *http.Client
	attempts int
}

// Open validates the configuration and returns a remote store. The server
// is not contacted until the first operation; use Ping to verify it.
func Open(cfg Config) (*Store, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, inventory.NewError(inventory.ErrCodeInvalidInput, "remote store requires a base URL")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeInvalidInput, err, "parse base URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	return &Store{
		base:     base,
		client:   &http.Client{Timeout: cfg.Timeout},
		attempts: cfg.Attempts,
	}, nil
}

// do runs one API exchange with retry and maps HTTP failures onto the
// store's error vocabulary.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	err := httputil.Retry(ctx, s.attempts, 500*time.Millisecond, func() error {
		_, err := httputil.DoJSON(ctx, s.client, method, s.base+path, body, out)
		return err
	})
	if err == nil {
		return nil
	}
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		code := inventory.Code(statusErr.Code)
		if code == "" {
			code = inventory.ErrCodeStoreRemote
		}
		if statusErr.Status == http.StatusNotFound && !isNotFoundCode(code) {
			code = inventory.ErrCodeNotFound
		}
		if isNotFoundCode(code) {
			return inventory.WrapError(code, store.ErrNotFound, "%s %s", method, path)
		}
		return inventory.NewError(code, "%s %s: %s", method, path, statusErr.Message)
	}
	return inventory.WrapError(inventory.ErrCodeStoreRemote, err, "%s %s", method, path)
}

func isNotFoundCode(code inventory.Code) bool {
	switch code {
	case inventory.ErrCodeNotFound, inventory.ErrCodeLocationNotFound,
		inventory.ErrCodeRegionNotFound, inventory.ErrCodeItemNotFound:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Locations
// ---------------------------------------------------------------------------

func (s *Store) CreateLocation(ctx context.Context, loc inventory.Location) (inventory.Location, error) {
	var out inventory.Location
	if err := s.do(ctx, http.MethodPost, "/api/locations", loc, &out); err != nil {
		return inventory.Location{}, err
	}
	return out, nil
}

func (s *Store) Location(ctx context.Context, id string) (inventory.Location, error) {
	var out inventory.Location
	if err := s.do(ctx, http.MethodGet, "/api/locations/"+url.PathEscape(id), nil, &out); err != nil {
		return inventory.Location{}, err
	}
	return out, nil
}

func (s *Store) Locations(ctx context.Context, f store.LocationFilter) ([]inventory.Location, error) {
	q := url.Values{}
	if f.RootsOnly {
		q.Set("root", "true")
	} else if f.ParentID != "" {
		q.Set("parentId", f.ParentID)
	}
	path := "/api/locations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	out := []inventory.Location{}
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateLocation(ctx context.Context, loc inventory.Location) (inventory.Location, error) {
	var out inventory.Location
	if err := s.do(ctx, http.MethodPut, "/api/locations/"+url.PathEscape(loc.ID), loc, &out); err != nil {
		return inventory.Location{}, err
	}
	return out, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/locations/"+url.PathEscape(id), nil, nil)
}

func (s *Store) Breadcrumbs(ctx context.Context, id string) ([]inventory.Breadcrumb, error) {
	out := []inventory.Breadcrumb{}
	if err := s.do(ctx, http.MethodGet, "/api/locations/"+url.PathEscape(id)+"/breadcrumbs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Regions
// ---------------------------------------------------------------------------

func (s *Store) CreateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error) {
	var out inventory.Region
	path := "/api/locations/" + url.PathEscape(r.LocationID) + "/regions"
	if err := s.do(ctx, http.MethodPost, path, r, &out); err != nil {
		return inventory.Region{}, err
	}
	return out, nil
}

func (s *Store) Region(ctx context.Context, id string) (inventory.Region, error) {
	var out inventory.Region
	if err := s.do(ctx, http.MethodGet, "/api/regions/"+url.PathEscape(id), nil, &out); err != nil {
		return inventory.Region{}, err
	}
	return out, nil
}

func (s *Store) RegionsByLocation(ctx context.Context, locationID string) ([]inventory.Region, error) {
	out := []inventory.Region{}
	path := "/api/locations/" + url.PathEscape(locationID) + "/regions"
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error) {
	var out inventory.Region
	if err := s.do(ctx, http.MethodPut, "/api/regions/"+url.PathEscape(r.ID), r, &out); err != nil {
		return inventory.Region{}, err
	}
	return out, nil
}

func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/regions/"+url.PathEscape(id), nil, nil)
}

func (s *Store) ReplaceRegions(ctx context.Context, locationID string, regions []inventory.Region) ([]inventory.Region, error) {
	out := []inventory.Region{}
	path := "/api/locations/" + url.PathEscape(locationID) + "/regions"
	if err := s.do(ctx, http.MethodPut, path, regions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (s *Store) CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	var out inventory.Item
	if err := s.do(ctx, http.MethodPost, "/api/inventory", item, &out); err != nil {
		return inventory.Item{}, err
	}
	return out, nil
}

func (s *Store) Item(ctx context.Context, id string) (inventory.Item, error) {
	var out inventory.Item
	if err := s.do(ctx, http.MethodGet, "/api/inventory/"+url.PathEscape(id), nil, &out); err != nil {
		return inventory.Item{}, err
	}
	return out, nil
}

func (s *Store) Items(ctx context.Context, f store.ItemFilter) ([]inventory.Item, error) {
	q := url.Values{}
	if f.LocationID != "" {
		q.Set("locationId", f.LocationID)
	}
	if f.RegionID != "" {
		q.Set("regionId", f.RegionID)
	}
	path := "/api/inventory"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	out := []inventory.Item{}
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	var out inventory.Item
	if err := s.do(ctx, http.MethodPut, "/api/inventory/"+url.PathEscape(item.ID), item, &out); err != nil {
		return inventory.Item{}, err
	}
	return out, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/inventory/"+url.PathEscape(id), nil, nil)
}

func (s *Store) SearchItems(ctx context.Context, query string) ([]inventory.Item, error) {
	out := []inventory.Item{}
	path := "/api/search?q=" + url.QueryEscape(query)
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

var _ store.Store = (*Store)(nil)
