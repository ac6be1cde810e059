// Package jsonfile implements the store contract on a single JSON document
// kept on disk. It is the default backend: no server process, no driver,
// human-readable data. Every mutation rewrites the file atomically via a
// temp file and rename.
package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// database is the on-disk document. Region order inside Regions is the
// editor's draw order and is preserved as stored.
type database struct {
	Locations []inventory.Location `json:"locations"`
	Regions   []inventory.Region   `json:"regions"`
	Items     []inventory.Item     `json:"items"`
}

// Store keeps the whole inventory in memory and mirrors it to one file.
type Store struct {
	mu   sync.RWMutex
	path string
	db   database
}

// Open loads the database at path, creating an empty one (and any missing
// parent directories) when the file does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, inventory.WrapError(inventory.ErrCodeStore, err, "create data directory")
			}
		}
		if err := s.save(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "read %s", path)
	default:
		if err := json.Unmarshal(raw, &s.db); err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "parse %s", path)
		}
	}
	return s, nil
}

// save writes the document atomically. Callers hold the write lock.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.db, "", "  ")
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "encode database")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "replace %s", s.path)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Locations
// ---------------------------------------------------------------------------

func (s *Store) CreateLocation(ctx context.Context, loc inventory.Location) (inventory.Location, error) {
	if err := inventory.ValidateName(loc.Name); err != nil {
		return inventory.Location{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc.ParentID != "" && s.locationIndex(loc.ParentID) < 0 {
		return inventory.Location{}, inventory.NewError(inventory.ErrCodeLocationNotFound, "parent location %s not found", loc.ParentID)
	}
	now := time.Now().UTC()
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	loc.CreatedAt = now
	loc.UpdatedAt = now
	s.db.Locations = append(s.db.Locations, loc)
	if err := s.save(); err != nil {
		return inventory.Location{}, err
	}
	return loc, nil
}

func (s *Store) Location(ctx context.Context, id string) (inventory.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.locationIndex(id); i >= 0 {
		return s.db.Locations[i], nil
	}
	return inventory.Location{}, locationNotFound(id)
}

func (s *Store) Locations(ctx context.Context, f store.LocationFilter) ([]inventory.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Location, 0, len(s.db.Locations))
	for _, loc := range s.db.Locations {
		switch {
		case f.RootsOnly && loc.ParentID != "":
			continue
		case f.ParentID != "" && loc.ParentID != f.ParentID:
			continue
		}
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateLocation(ctx context.Context, loc inventory.Location) (inventory.Location, error) {
	if err := inventory.ValidateName(loc.Name); err != nil {
		return inventory.Location{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.locationIndex(loc.ID)
	if i < 0 {
		return inventory.Location{}, locationNotFound(loc.ID)
	}
	if loc.ParentID != "" {
		if s.locationIndex(loc.ParentID) < 0 {
			return inventory.Location{}, inventory.NewError(inventory.ErrCodeLocationNotFound, "parent location %s not found", loc.ParentID)
		}
		if s.wouldCycle(loc.ID, loc.ParentID) {
			return inventory.Location{}, inventory.NewError(inventory.ErrCodeInvalidInput, "location %s cannot be its own ancestor", loc.ID)
		}
	}
	loc.CreatedAt = s.db.Locations[i].CreatedAt
	loc.UpdatedAt = time.Now().UTC()
	s.db.Locations[i] = loc
	if err := s.save(); err != nil {
		return inventory.Location{}, err
	}
	return loc, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.locationIndex(id)
	if i < 0 {
		return locationNotFound(id)
	}
	s.db.Locations = append(s.db.Locations[:i], s.db.Locations[i+1:]...)

	// Cascade regions, detach items, promote children to root.
	kept := s.db.Regions[:0]
	removed := map[string]bool{}
	for _, r := range s.db.Regions {
		if r.LocationID == id {
			removed[r.ID] = true
			continue
		}
		kept = append(kept, r)
	}
	s.db.Regions = kept
	for j := range s.db.Items {
		if s.db.Items[j].LocationID == id {
			s.db.Items[j].LocationID = ""
			s.db.Items[j].RegionID = ""
		} else if removed[s.db.Items[j].RegionID] {
			s.db.Items[j].RegionID = ""
		}
	}
	for j := range s.db.Locations {
		if s.db.Locations[j].ParentID == id {
			s.db.Locations[j].ParentID = ""
		}
	}
	return s.save()
}

func (s *Store) Breadcrumbs(ctx context.Context, id string) ([]inventory.Breadcrumb, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chain []inventory.Breadcrumb
	seen := map[string]bool{}
	for cur := id; cur != "" && !seen[cur]; {
		seen[cur] = true
		i := s.locationIndex(cur)
		if i < 0 {
			if cur == id {
				return nil, locationNotFound(id)
			}
			break
		}
		loc := s.db.Locations[i]
		chain = append([]inventory.Breadcrumb{{ID: loc.ID, Name: loc.Name}}, chain...)
		cur = loc.ParentID
	}
	return chain, nil
}

// ---------------------------------------------------------------------------
// Regions
// ---------------------------------------------------------------------------

func (s *Store) CreateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error) {
	if err := inventory.ValidateRegion(r); err != nil {
		return inventory.Region{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locationIndex(r.LocationID) < 0 {
		return inventory.Region{}, locationNotFound(r.LocationID)
	}
	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	s.db.Regions = append(s.db.Regions, r)
	if err := s.save(); err != nil {
		return inventory.Region{}, err
	}
	return r, nil
}

func (s *Store) Region(ctx context.Context, id string) (inventory.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.regionIndex(id); i >= 0 {
		return s.db.Regions[i], nil
	}
	return inventory.Region{}, regionNotFound(id)
}

func (s *Store) RegionsByLocation(ctx context.Context, locationID string) ([]inventory.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.locationIndex(locationID) < 0 {
		return nil, locationNotFound(locationID)
	}
	out := make([]inventory.Region, 0, 4)
	for _, r := range s.db.Regions {
		if r.LocationID == locationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) UpdateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error) {
	if err := inventory.ValidateRegion(r); err != nil {
		return inventory.Region{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.regionIndex(r.ID)
	if i < 0 {
		return inventory.Region{}, regionNotFound(r.ID)
	}
	r.CreatedAt = s.db.Regions[i].CreatedAt
	r.UpdatedAt = time.Now().UTC()
	s.db.Regions[i] = r
	if err := s.save(); err != nil {
		return inventory.Region{}, err
	}
	return r, nil
}

func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.regionIndex(id)
	if i < 0 {
		return regionNotFound(id)
	}
	s.db.Regions = append(s.db.Regions[:i], s.db.Regions[i+1:]...)
	for j := range s.db.Items {
		if s.db.Items[j].RegionID == id {
			s.db.Items[j].RegionID = ""
		}
	}
	return s.save()
}

func (s *Store) ReplaceRegions(ctx context.Context, locationID string, regions []inventory.Region) ([]inventory.Region, error) {
	for _, r := range regions {
		r.LocationID = locationID
		if err := inventory.ValidateRegion(r); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locationIndex(locationID) < 0 {
		return nil, locationNotFound(locationID)
	}

	// Keep CreatedAt for regions that survive the swap; everything else is
	// new. Items pointing at regions that vanished are detached.
	created := map[string]time.Time{}
	kept := s.db.Regions[:0]
	for _, r := range s.db.Regions {
		if r.LocationID == locationID {
			created[r.ID] = r.CreatedAt
			continue
		}
		kept = append(kept, r)
	}
	s.db.Regions = kept

	now := time.Now().UTC()
	surviving := map[string]bool{}
	out := make([]inventory.Region, 0, len(regions))
	for _, r := range regions {
		r.LocationID = locationID
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if at, ok := created[r.ID]; ok {
			r.CreatedAt = at
		} else {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		surviving[r.ID] = true
		out = append(out, r)
		s.db.Regions = append(s.db.Regions, r)
	}
	for id := range created {
		if surviving[id] {
			continue
		}
		for j := range s.db.Items {
			if s.db.Items[j].RegionID == id {
				s.db.Items[j].RegionID = ""
			}
		}
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (s *Store) CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if err := inventory.ValidateItem(item); err != nil {
		return inventory.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkItemRefs(item); err != nil {
		return inventory.Item{}, err
	}
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	item.LocationName, item.RegionName = "", ""
	s.db.Items = append(s.db.Items, item)
	if err := s.save(); err != nil {
		return inventory.Item{}, err
	}
	return s.joined(item), nil
}

func (s *Store) Item(ctx context.Context, id string) (inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.itemIndex(id); i >= 0 {
		return s.joined(s.db.Items[i]), nil
	}
	return inventory.Item{}, itemNotFound(id)
}

func (s *Store) Items(ctx context.Context, f store.ItemFilter) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Item, 0, len(s.db.Items))
	for _, item := range s.db.Items {
		if f.LocationID != "" && item.LocationID != f.LocationID {
			continue
		}
		if f.RegionID != "" && item.RegionID != f.RegionID {
			continue
		}
		out = append(out, s.joined(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if err := inventory.ValidateItem(item); err != nil {
		return inventory.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.itemIndex(item.ID)
	if i < 0 {
		return inventory.Item{}, itemNotFound(item.ID)
	}
	if err := s.checkItemRefs(item); err != nil {
		return inventory.Item{}, err
	}
	item.CreatedAt = s.db.Items[i].CreatedAt
	item.UpdatedAt = time.Now().UTC()
	item.LocationName, item.RegionName = "", ""
	s.db.Items[i] = item
	if err := s.save(); err != nil {
		return inventory.Item{}, err
	}
	return s.joined(item), nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.itemIndex(id)
	if i < 0 {
		return itemNotFound(id)
	}
	s.db.Items = append(s.db.Items[:i], s.db.Items[i+1:]...)
	return s.save()
}

func (s *Store) SearchItems(ctx context.Context, query string) ([]inventory.Item, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []inventory.Item{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Item, 0, 4)
	for _, item := range s.db.Items {
		if strings.Contains(strings.ToLower(item.Name), q) ||
			strings.Contains(strings.ToLower(item.Description), q) {
			out = append(out, s.joined(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := os.Stat(s.path); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "stat %s", s.path)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (s *Store) locationIndex(id string) int {
	for i, loc := range s.db.Locations {
		if loc.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) regionIndex(id string) int {
	for i, r := range s.db.Regions {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) itemIndex(id string) int {
	for i, item := range s.db.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// wouldCycle reports whether attaching loc under parent would make loc its
// own ancestor.
func (s *Store) wouldCycle(locID, parentID string) bool {
	seen := map[string]bool{}
	for cur := parentID; cur != "" && !seen[cur]; {
		if cur == locID {
			return true
		}
		seen[cur] = true
		i := s.locationIndex(cur)
		if i < 0 {
			return false
		}
		cur = s.db.Locations[i].ParentID
	}
	return false
}

// checkItemRefs verifies an item's location and region references and that
// the region actually belongs to the location.
func (s *Store) checkItemRefs(item inventory.Item) error {
	if item.LocationID != "" && s.locationIndex(item.LocationID) < 0 {
		return locationNotFound(item.LocationID)
	}
	if item.RegionID != "" {
		i := s.regionIndex(item.RegionID)
		if i < 0 {
			return regionNotFound(item.RegionID)
		}
		if s.db.Regions[i].LocationID != item.LocationID {
			return inventory.NewError(inventory.ErrCodeInvalidInput, "region %s does not belong to location %s", item.RegionID, item.LocationID)
		}
	}
	return nil
}

// joined fills in the display names of an item's location and region.
func (s *Store) joined(item inventory.Item) inventory.Item {
	if i := s.locationIndex(item.LocationID); i >= 0 {
		item.LocationName = s.db.Locations[i].Name
	}
	if i := s.regionIndex(item.RegionID); i >= 0 {
		item.RegionName = s.db.Regions[i].Name
	}
	return item
}

func locationNotFound(id string) error {
	return inventory.WrapError(inventory.ErrCodeLocationNotFound, store.ErrNotFound, "location %s", id)
}

func regionNotFound(id string) error {
	return inventory.WrapError(inventory.ErrCodeRegionNotFound, store.ErrNotFound, "region %s", id)
}

func itemNotFound(id string) error {
	return inventory.WrapError(inventory.ErrCodeItemNotFound, store.ErrNotFound, "item %s", id)
}

var _ store.Store = (*Store)(nil)
