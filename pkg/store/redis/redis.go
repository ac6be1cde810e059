// Package redis implements the store contract on Redis, for deployments
// where several shelfmap instances share one inventory. Entities are JSON
// values under per-entity keys; membership lives in sets, and each
// location's region order lives in a list.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; defaults to "shelfmap".
	Prefix string
}

// Store is a Redis-backed inventory store.
type Store struct {
	client *goredis.Client
	prefix string
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "shelfmap"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "connect to redis at %s", cfg.Addr)
	}
	return &Store{client: client, prefix: cfg.Prefix}, nil
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) locationKey(id string) string  { return s.key("location", id) }
func (s *Store) locationsKey() string          { return s.key("locations") }
func (s *Store) regionKey(id string) string    { return s.key("region", id) }
func (s *Store) regionsKey(locID string) string { return s.key("location", locID, "regions") }
func (s *Store) itemKey(id string) string      { return s.key("item", id) }
func (s *Store) itemsKey() string              { return s.key("items") }

// getJSON loads one key into dst, translating a missing key to notFound.
func (s *Store) getJSON(ctx context.Context, key string, dst any, notFound error) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return notFound
	}
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "get %s", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "decode %s", key)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "encode %s", key)
	}
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "set %s", key)
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
	if loc.ParentID != "" {
		if _, err := s.Location(ctx, loc.ParentID); err != nil {
			return inventory.Location{}, err
		}
	}
	now := time.Now().UTC()
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	loc.CreatedAt, loc.UpdatedAt = now, now
	if err := s.setJSON(ctx, s.locationKey(loc.ID), loc); err != nil {
		return inventory.Location{}, err
	}
	if err := s.client.SAdd(ctx, s.locationsKey(), loc.ID).Err(); err != nil {
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeStore, err, "index location")
	}
	return loc, nil
}

func (s *Store) Location(ctx context.Context, id string) (inventory.Location, error) {
	var loc inventory.Location
	if err := s.getJSON(ctx, s.locationKey(id), &loc, locationNotFound(id)); err != nil {
		return inventory.Location{}, err
	}
	return loc, nil
}

func (s *Store) allLocations(ctx context.Context) ([]inventory.Location, error) {
	ids, err := s.client.SMembers(ctx, s.locationsKey()).Result()
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "list locations")
	}
	out := make([]inventory.Location, 0, len(ids))
	for _, id := range ids {
		loc, err := s.Location(ctx, id)
		if err != nil {
			if inventory.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}

func (s *Store) Locations(ctx context.Context, f store.LocationFilter) ([]inventory.Location, error) {
	all, err := s.allLocations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Location, 0, len(all))
	for _, loc := range all {
		switch {
		case f.RootsOnly && loc.ParentID != "":
			continue
		case f.ParentID != "" && loc.ParentID != f.ParentID:
			continue
		}
		out = append(out, loc)
	}
	sortLocations(out)
	return out, nil
}

func (s *Store) UpdateLocation(ctx context.Context, loc inventory.Location) (inventory.Location, error) {
	if err := inventory.ValidateName(loc.Name); err != nil {
		return inventory.Location{}, err
	}
	current, err := s.Location(ctx, loc.ID)
	if err != nil {
		return inventory.Location{}, err
	}
	if loc.ParentID != "" {
		if _, err := s.Location(ctx, loc.ParentID); err != nil {
			return inventory.Location{}, err
		}
		cyclic, err := s.wouldCycle(ctx, loc.ID, loc.ParentID)
		if err != nil {
			return inventory.Location{}, err
		}
		if cyclic {
			return inventory.Location{}, inventory.NewError(inventory.ErrCodeInvalidInput, "location %s cannot be its own ancestor", loc.ID)
		}
	}
	loc.CreatedAt = current.CreatedAt
	loc.UpdatedAt = time.Now().UTC()
	if err := s.setJSON(ctx, s.locationKey(loc.ID), loc); err != nil {
		return inventory.Location{}, err
	}
	return loc, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	if _, err := s.Location(ctx, id); err != nil {
		return err
	}
	regions, err := s.RegionsByLocation(ctx, id)
	if err != nil {
		return err
	}
	removed := map[string]bool{}
	pipe := s.client.TxPipeline()
	for _, r := range regions {
		removed[r.ID] = true
		pipe.Del(ctx, s.regionKey(r.ID))
	}
	pipe.Del(ctx, s.regionsKey(id))
	pipe.Del(ctx, s.locationKey(id))
	pipe.SRem(ctx, s.locationsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "delete location %s", id)
	}

	// Detach items and promote child locations. These are read-modify-write
	// cycles, so they happen outside the pipeline.
	items, err := s.allItems(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		changed := false
		if it.LocationID == id {
			it.LocationID, it.RegionID = "", ""
			changed = true
		} else if removed[it.RegionID] {
			it.RegionID = ""
			changed = true
		}
		if changed {
			if err := s.setJSON(ctx, s.itemKey(it.ID), it); err != nil {
				return err
			}
		}
	}
	children, err := s.Locations(ctx, store.LocationFilter{ParentID: id})
	if err != nil {
		return err
	}
	for _, child := range children {
		child.ParentID = ""
		child.UpdatedAt = time.Now().UTC()
		if err := s.setJSON(ctx, s.locationKey(child.ID), child); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Breadcrumbs(ctx context.Context, id string) ([]inventory.Breadcrumb, error) {
	var chain []inventory.Breadcrumb
	seen := map[string]bool{}
	for cur := id; cur != "" && !seen[cur]; {
		seen[cur] = true
		loc, err := s.Location(ctx, cur)
		if err != nil {
			if cur == id {
				return nil, err
			}
			break
		}
		chain = append([]inventory.Breadcrumb{{ID: loc.ID, Name: loc.Name}}, chain...)
		cur = loc.ParentID
	}
	return chain, nil
}

func (s *Store) wouldCycle(ctx context.Context, locID, parentID string) (bool, error) {
	seen := map[string]bool{}
	for cur := parentID; cur != "" && !seen[cur]; {
		if cur == locID {
			return true, nil
		}
		seen[cur] = true
		loc, err := s.Location(ctx, cur)
		if err != nil {
			if inventory.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		cur = loc.ParentID
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// Regions
// ---------------------------------------------------------------------------

func (s *Store) CreateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error) {
	if err := inventory.ValidateRegion(r); err != nil {
		return inventory.Region{}, err
	}
	if _, err := s.Location(ctx, r.LocationID); err != nil {
		return inventory.Region{}, err
	}
	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt, r.UpdatedAt = now, now
	if err := s.setJSON(ctx, s.regionKey(r.ID), r); err != nil {
		return inventory.Region{}, err
	}
	if err := s.client.RPush(ctx, s.regionsKey(r.LocationID), r.ID).Err(); err != nil {
		return inventory.Region{}, inventory.WrapError(inventory.ErrCodeStore, err, "index region")
	}
	return r, nil
}

func (s *Store) Region(ctx context.Context, id string) (inventory.Region, error) {
	var r inventory.Region
	if err := s.getJSON(ctx, s.regionKey(id), &r, regionNotFound(id)); err != nil {
		return inventory.Region{}, err
	}
	return r, nil
}

func (s *Store) RegionsByLocation(ctx context.Context, locationID string) ([]inventory.Region, error) {
	if _, err := s.Location(ctx, locationID); err != nil {
		return nil, err
	}
	ids, err := s.client.LRange(ctx, s.regionsKey(locationID), 0, -1).Result()
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "list regions")
	}
	out := make([]inventory.Region, 0, len(ids))
	for _, id := range ids {
		r, err := s.Region(ctx, id)
		if err != nil {
			if inventory.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) UpdateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error) {
	if err := inventory.ValidateRegion(r); err != nil {
		return inventory.Region{}, err
	}
	current, err := s.Region(ctx, r.ID)
	if err != nil {
		return inventory.Region{}, err
	}
	if r.LocationID != current.LocationID {
		return inventory.Region{}, inventory.NewError(inventory.ErrCodeInvalidInput, "region %s cannot move between locations", r.ID)
	}
	r.CreatedAt = current.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	if err := s.setJSON(ctx, s.regionKey(r.ID), r); err != nil {
		return inventory.Region{}, err
	}
	return r, nil
}

func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	r, err := s.Region(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.regionKey(id))
	pipe.LRem(ctx, s.regionsKey(r.LocationID), 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "delete region %s", id)
	}
	return s.detachItemsFromRegion(ctx, id)
}

func (s *Store) ReplaceRegions(ctx context.Context, locationID string, regions []inventory.Region) ([]inventory.Region, error) {
	for _, r := range regions {
		r.LocationID = locationID
		if err := inventory.ValidateRegion(r); err != nil {
			return nil, err
		}
	}
	existing, err := s.RegionsByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	created := map[string]time.Time{}
	for _, r := range existing {
		created[r.ID] = r.CreatedAt
	}

	now := time.Now().UTC()
	surviving := map[string]bool{}
	out := make([]inventory.Region, 0, len(regions))
	pipe := s.client.TxPipeline()
	for _, r := range existing {
		pipe.Del(ctx, s.regionKey(r.ID))
	}
	pipe.Del(ctx, s.regionsKey(locationID))
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
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "encode region")
		}
		pipe.Set(ctx, s.regionKey(r.ID), raw, 0)
		pipe.RPush(ctx, s.regionsKey(locationID), r.ID)
		out = append(out, r)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "replace regions")
	}
	for id := range created {
		if surviving[id] {
			continue
		}
		if err := s.detachItemsFromRegion(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) detachItemsFromRegion(ctx context.Context, regionID string) error {
	items, err := s.allItems(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.RegionID != regionID {
			continue
		}
		it.RegionID = ""
		if err := s.setJSON(ctx, s.itemKey(it.ID), it); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (s *Store) checkItemRefs(ctx context.Context, item inventory.Item) error {
	if item.LocationID != "" {
		if _, err := s.Location(ctx, item.LocationID); err != nil {
			return err
		}
	}
	if item.RegionID != "" {
		r, err := s.Region(ctx, item.RegionID)
		if err != nil {
			return err
		}
		if r.LocationID != item.LocationID {
			return inventory.NewError(inventory.ErrCodeInvalidInput, "region %s does not belong to location %s", item.RegionID, item.LocationID)
		}
	}
	return nil
}

func (s *Store) CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if err := inventory.ValidateItem(item); err != nil {
		return inventory.Item{}, err
	}
	if err := s.checkItemRefs(ctx, item); err != nil {
		return inventory.Item{}, err
	}
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt, item.UpdatedAt = now, now
	item.LocationName, item.RegionName = "", ""
	if err := s.setJSON(ctx, s.itemKey(item.ID), item); err != nil {
		return inventory.Item{}, err
	}
	if err := s.client.SAdd(ctx, s.itemsKey(), item.ID).Err(); err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeStore, err, "index item")
	}
	return s.joined(ctx, item)
}

func (s *Store) Item(ctx context.Context, id string) (inventory.Item, error) {
	var item inventory.Item
	if err := s.getJSON(ctx, s.itemKey(id), &item, itemNotFound(id)); err != nil {
		return inventory.Item{}, err
	}
	return s.joined(ctx, item)
}

func (s *Store) allItems(ctx context.Context) ([]inventory.Item, error) {
	ids, err := s.client.SMembers(ctx, s.itemsKey()).Result()
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "list items")
	}
	out := make([]inventory.Item, 0, len(ids))
	for _, id := range ids {
		var item inventory.Item
		err := s.getJSON(ctx, s.itemKey(id), &item, nil)
		if err != nil {
			return nil, err
		}
		if item.ID == "" {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) Items(ctx context.Context, f store.ItemFilter) ([]inventory.Item, error) {
	all, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Item, 0, len(all))
	for _, item := range all {
		if f.LocationID != "" && item.LocationID != f.LocationID {
			continue
		}
		if f.RegionID != "" && item.RegionID != f.RegionID {
			continue
		}
		joined, err := s.joined(ctx, item)
		if err != nil {
			return nil, err
		}
		out = append(out, joined)
	}
	sortItems(out)
	return out, nil
}

func (s *Store) UpdateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if err := inventory.ValidateItem(item); err != nil {
		return inventory.Item{}, err
	}
	var current inventory.Item
	if err := s.getJSON(ctx, s.itemKey(item.ID), &current, itemNotFound(item.ID)); err != nil {
		return inventory.Item{}, err
	}
	if err := s.checkItemRefs(ctx, item); err != nil {
		return inventory.Item{}, err
	}
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	item.LocationName, item.RegionName = "", ""
	if err := s.setJSON(ctx, s.itemKey(item.ID), item); err != nil {
		return inventory.Item{}, err
	}
	return s.joined(ctx, item)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	var item inventory.Item
	if err := s.getJSON(ctx, s.itemKey(id), &item, itemNotFound(id)); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.itemKey(id))
	pipe.SRem(ctx, s.itemsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "delete item %s", id)
	}
	return nil
}

func (s *Store) SearchItems(ctx context.Context, query string) ([]inventory.Item, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []inventory.Item{}, nil
	}
	all, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Item, 0, 4)
	for _, item := range all {
		if strings.Contains(strings.ToLower(item.Name), q) ||
			strings.Contains(strings.ToLower(item.Description), q) {
			joined, err := s.joined(ctx, item)
			if err != nil {
				return nil, err
			}
			out = append(out, joined)
		}
	}
	sortItems(out)
	return out, nil
}

// joined fills in the display names of an item's location and region.
func (s *Store) joined(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if item.LocationID != "" {
		loc, err := s.Location(ctx, item.LocationID)
		if err == nil {
			item.LocationName = loc.Name
		} else if !inventory.IsNotFound(err) {
			return inventory.Item{}, err
		}
	}
	if item.RegionID != "" {
		r, err := s.Region(ctx, item.RegionID)
		if err == nil {
			item.RegionName = r.Name
		} else if !inventory.IsNotFound(err) {
			return inventory.Item{}, err
		}
	}
	return item, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "ping redis")
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }

func sortLocations(locs []inventory.Location) {
	sort.Slice(locs, func(i, j int) bool { return locs[i].Name < locs[j].Name })
}

func sortItems(items []inventory.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
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
