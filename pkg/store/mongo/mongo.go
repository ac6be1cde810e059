// Package mongo implements the store contract on MongoDB. Each entity type
// lives in its own collection; region draw order is kept in a pos field
// assigned on write.
package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI string
	// Database defaults to "shelfmap".
	Database string
}

// Store is a MongoDB-backed inventory store.
type Store struct {
	client    *driver.Client
	locations *driver.Collection
	regions   *driver.Collection
	items     *driver.Collection
}

// regionDoc wraps a region with its position in the location's draw order.
type regionDoc struct {
	inventory.Region `bson:",inline"`
	Pos              int `bson:"pos"`
}

// Open connects to MongoDB and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = "shelfmap"
	}
	client, err := driver.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "ping mongodb")
	}
	db := client.Database(cfg.Database)
	s := &Store{
		client:    client,
		locations: db.Collection("locations"),
		regions:   db.Collection("regions"),
		items:     db.Collection("items"),
	}
	s.ensureIndexes(ctx)
	return s, nil
}

// ensureIndexes is best effort; queries work without them.
func (s *Store) ensureIndexes(ctx context.Context) {
	s.locations.Indexes().CreateOne(ctx, driver.IndexModel{
		Keys: bson.D{{Key: "parent_id", Value: 1}},
	})
	s.regions.Indexes().CreateOne(ctx, driver.IndexModel{
		Keys: bson.D{{Key: "location_id", Value: 1}, {Key: "pos", Value: 1}},
	})
	s.items.Indexes().CreateOne(ctx, driver.IndexModel{
		Keys: bson.D{{Key: "location_id", Value: 1}},
	})
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
	if _, err := s.locations.InsertOne(ctx, loc); err != nil {
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeStore, err, "insert location")
	}
	return loc, nil
}

func (s *Store) Location(ctx context.Context, id string) (inventory.Location, error) {
	var loc inventory.Location
	err := s.locations.FindOne(ctx, bson.M{"_id": id}).Decode(&loc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return inventory.Location{}, locationNotFound(id)
	}
	if err != nil {
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeStore, err, "find location")
	}
	return loc, nil
}

func (s *Store) Locations(ctx context.Context, f store.LocationFilter) ([]inventory.Location, error) {
	filter := bson.M{}
	switch {
	case f.RootsOnly:
		filter["parent_id"] = bson.M{"$in": bson.A{"", nil}}
	case f.ParentID != "":
		filter["parent_id"] = f.ParentID
	}
	cur, err := s.locations.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "find locations")
	}
	out := []inventory.Location{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "decode locations")
	}
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
	if _, err := s.locations.ReplaceOne(ctx, bson.M{"_id": loc.ID}, loc); err != nil {
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeStore, err, "update location")
	}
	return loc, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	if _, err := s.Location(ctx, id); err != nil {
		return err
	}
	// Collect region ids first so items pointing at them can be detached.
	cur, err := s.regions.Find(ctx, bson.M{"location_id": id})
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "find regions")
	}
	var docs []regionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "decode regions")
	}
	regionIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		regionIDs = append(regionIDs, d.Region.ID)
	}

	steps := []func() error{
		func() error {
			_, err := s.items.UpdateMany(ctx, bson.M{"region_id": bson.M{"$in": regionIDs}},
				bson.M{"$set": bson.M{"region_id": ""}})
			return err
		},
		func() error {
			_, err := s.items.UpdateMany(ctx, bson.M{"location_id": id},
				bson.M{"$set": bson.M{"location_id": "", "region_id": ""}})
			return err
		},
		func() error {
			_, err := s.regions.DeleteMany(ctx, bson.M{"location_id": id})
			return err
		},
		func() error {
			_, err := s.locations.UpdateMany(ctx, bson.M{"parent_id": id},
				bson.M{"$set": bson.M{"parent_id": ""}})
			return err
		},
		func() error {
			_, err := s.locations.DeleteOne(ctx, bson.M{"_id": id})
			return err
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return inventory.WrapError(inventory.ErrCodeStore, err, "delete location %s", id)
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

	pos, err := s.nextPos(ctx, r.LocationID)
	if err != nil {
		return inventory.Region{}, err
	}
	if _, err := s.regions.InsertOne(ctx, regionDoc{Region: r, Pos: pos}); err != nil {
		return inventory.Region{}, inventory.WrapError(inventory.ErrCodeStore, err, "insert region")
	}
	return r, nil
}

func (s *Store) nextPos(ctx context.Context, locationID string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "pos", Value: -1}})
	var top regionDoc
	err := s.regions.FindOne(ctx, bson.M{"location_id": locationID}, opts).Decode(&top)
	if errors.Is(err, driver.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, inventory.WrapError(inventory.ErrCodeStore, err, "find max pos")
	}
	return top.Pos + 1, nil
}

func (s *Store) Region(ctx context.Context, id string) (inventory.Region, error) {
	var doc regionDoc
	err := s.regions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return inventory.Region{}, regionNotFound(id)
	}
	if err != nil {
		return inventory.Region{}, inventory.WrapError(inventory.ErrCodeStore, err, "find region")
	}
	return doc.Region, nil
}

func (s *Store) RegionsByLocation(ctx context.Context, locationID string) ([]inventory.Region, error) {
	if _, err := s.Location(ctx, locationID); err != nil {
		return nil, err
	}
	cur, err := s.regions.Find(ctx, bson.M{"location_id": locationID},
		options.Find().SetSort(bson.D{{Key: "pos", Value: 1}}))
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "find regions")
	}
	var docs []regionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "decode regions")
	}
	out := make([]inventory.Region, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Region)
	}
	return out, nil
}

func (s *Store) UpdateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error) {
	if err := inventory.ValidateRegion(r); err != nil {
		return inventory.Region{}, err
	}
	var doc regionDoc
	err := s.regions.FindOne(ctx, bson.M{"_id": r.ID}).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return inventory.Region{}, regionNotFound(r.ID)
	}
	if err != nil {
		return inventory.Region{}, inventory.WrapError(inventory.ErrCodeStore, err, "find region")
	}
	r.CreatedAt = doc.Region.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	if _, err := s.regions.ReplaceOne(ctx, bson.M{"_id": r.ID}, regionDoc{Region: r, Pos: doc.Pos}); err != nil {
		return inventory.Region{}, inventory.WrapError(inventory.ErrCodeStore, err, "update region")
	}
	return r, nil
}

func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	res, err := s.regions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "delete region")
	}
	if res.DeletedCount == 0 {
		return regionNotFound(id)
	}
	if _, err := s.items.UpdateMany(ctx, bson.M{"region_id": id},
		bson.M{"$set": bson.M{"region_id": ""}}); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "detach items")
	}
	return nil
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

	if _, err := s.regions.DeleteMany(ctx, bson.M{"location_id": locationID}); err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "clear regions")
	}

	now := time.Now().UTC()
	surviving := map[string]bool{}
	out := make([]inventory.Region, 0, len(regions))
	docs := make([]any, 0, len(regions))
	for pos, r := range regions {
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
		docs = append(docs, regionDoc{Region: r, Pos: pos})
		out = append(out, r)
	}
	if len(docs) > 0 {
		if _, err := s.regions.InsertMany(ctx, docs); err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "insert regions")
		}
	}
	removed := make([]string, 0, len(created))
	for id := range created {
		if !surviving[id] {
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		if _, err := s.items.UpdateMany(ctx, bson.M{"region_id": bson.M{"$in": removed}},
			bson.M{"$set": bson.M{"region_id": ""}}); err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "detach items")
		}
	}
	return out, nil
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
	if _, err := s.items.InsertOne(ctx, item); err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeStore, err, "insert item")
	}
	return s.joined(ctx, item)
}

func (s *Store) Item(ctx context.Context, id string) (inventory.Item, error) {
	var item inventory.Item
	err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if errors.Is(err, driver.ErrNoDocuments) {
		return inventory.Item{}, itemNotFound(id)
	}
	if err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeStore, err, "find item")
	}
	return s.joined(ctx, item)
}

func (s *Store) Items(ctx context.Context, f store.ItemFilter) ([]inventory.Item, error) {
	filter := bson.M{}
	if f.LocationID != "" {
		filter["location_id"] = f.LocationID
	}
	if f.RegionID != "" {
		filter["region_id"] = f.RegionID
	}
	return s.findItems(ctx, filter)
}

func (s *Store) UpdateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if err := inventory.ValidateItem(item); err != nil {
		return inventory.Item{}, err
	}
	var current inventory.Item
	err := s.items.FindOne(ctx, bson.M{"_id": item.ID}).Decode(&current)
	if errors.Is(err, driver.ErrNoDocuments) {
		return inventory.Item{}, itemNotFound(item.ID)
	}
	if err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeStore, err, "find item")
	}
	if err := s.checkItemRefs(ctx, item); err != nil {
		return inventory.Item{}, err
	}
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	item.LocationName, item.RegionName = "", ""
	if _, err := s.items.ReplaceOne(ctx, bson.M{"_id": item.ID}, item); err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeStore, err, "update item")
	}
	return s.joined(ctx, item)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "delete item")
	}
	if res.DeletedCount == 0 {
		return itemNotFound(id)
	}
	return nil
}

func (s *Store) SearchItems(ctx context.Context, query string) ([]inventory.Item, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []inventory.Item{}, nil
	}
	pattern := primitive.Regex{Pattern: regexQuote(q), Options: "i"}
	return s.findItems(ctx, bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"description": pattern},
	}})
}

func (s *Store) findItems(ctx context.Context, filter bson.M) ([]inventory.Item, error) {
	cur, err := s.items.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "find items")
	}
	items := []inventory.Item{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "decode items")
	}
	out := make([]inventory.Item, 0, len(items))
	for _, item := range items {
		joined, err := s.joined(ctx, item)
		if err != nil {
			return nil, err
		}
		out = append(out, joined)
	}
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

// regexQuote escapes regex metacharacters so search queries match literally.
func regexQuote(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "ping mongodb")
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
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
