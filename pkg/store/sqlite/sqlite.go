// Package sqlite implements the store contract on a single SQLite file via
// the pure-Go modernc.org/sqlite driver, so the binary needs no CGO.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// Store is a SQLite-backed inventory store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite file at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "create db directory")
		}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "open sqlite")
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			parent_id TEXT NOT NULL DEFAULT '',
			image_path TEXT NOT NULL DEFAULT '',
			image_width REAL NOT NULL DEFAULT 0,
			image_height REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS regions (
			id TEXT PRIMARY KEY,
			location_id TEXT NOT NULL REFERENCES locations(id),
			name TEXT NOT NULL DEFAULT '',
			x REAL NOT NULL,
			y REAL NOT NULL,
			width REAL NOT NULL,
			height REAL NOT NULL,
			pos INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL DEFAULT 0,
			image_path TEXT NOT NULL DEFAULT '',
			location_id TEXT NOT NULL DEFAULT '',
			region_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_locations_parent ON locations(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_regions_location ON regions(location_id, pos)`,
		`CREATE INDEX IF NOT EXISTS idx_items_location ON items(location_id)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return inventory.WrapError(inventory.ErrCodeStore, err, "migrate")
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Locations
// ---------------------------------------------------------------------------

const locationCols = `id, name, description, parent_id, image_path, image_width, image_height, created_at, updated_at`

func scanLocation(row interface{ Scan(...any) error }) (inventory.Location, error) {
	var loc inventory.Location
	err := row.Scan(&loc.ID, &loc.Name, &loc.Description, &loc.ParentID,
		&loc.ImagePath, &loc.ImageWidth, &loc.ImageHeight, &loc.CreatedAt, &loc.UpdatedAt)
	return loc, err
}

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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (`+locationCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loc.ID, loc.Name, loc.Description, loc.ParentID,
		loc.ImagePath, loc.ImageWidth, loc.ImageHeight, loc.CreatedAt, loc.UpdatedAt)
	if err != nil {
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeStore, err, "insert location")
	}
	return loc, nil
}

func (s *Store) Location(ctx context.Context, id string) (inventory.Location, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+locationCols+` FROM locations WHERE id = ?`, id)
	loc, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Location{}, locationNotFound(id)
	}
	if err != nil {
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeStore, err, "select location")
	}
	return loc, nil
}

func (s *Store) Locations(ctx context.Context, f store.LocationFilter) ([]inventory.Location, error) {
	query := `SELECT ` + locationCols + ` FROM locations`
	var args []any
	switch {
	case f.RootsOnly:
		query += ` WHERE parent_id = ''`
	case f.ParentID != "":
		query += ` WHERE parent_id = ?`
		args = append(args, f.ParentID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "select locations")
	}
	defer rows.Close()

	out := []inventory.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "scan location")
		}
		out = append(out, loc)
	}
	return out, rows.Err()
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
	_, err = s.db.ExecContext(ctx,
		`UPDATE locations SET name = ?, description = ?, parent_id = ?, image_path = ?,
		 image_width = ?, image_height = ?, updated_at = ? WHERE id = ?`,
		loc.Name, loc.Description, loc.ParentID, loc.ImagePath,
		loc.ImageWidth, loc.ImageHeight, loc.UpdatedAt, loc.ID)
	if err != nil {
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeStore, err, "update location")
	}
	return loc, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	if _, err := s.Location(ctx, id); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "begin delete location")
	}
	defer tx.Rollback()

	steps := []struct {
		query string
		args  []any
	}{
		{`UPDATE items SET region_id = '' WHERE region_id IN (SELECT id FROM regions WHERE location_id = ?)`, []any{id}},
		{`UPDATE items SET location_id = '', region_id = '' WHERE location_id = ?`, []any{id}},
		{`DELETE FROM regions WHERE location_id = ?`, []any{id}},
		{`UPDATE locations SET parent_id = '' WHERE parent_id = ?`, []any{id}},
		{`DELETE FROM locations WHERE id = ?`, []any{id}},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
			return inventory.WrapError(inventory.ErrCodeStore, err, "delete location")
		}
	}
	if err := tx.Commit(); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "commit delete location")
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

const regionCols = `id, location_id, name, x, y, width, height, created_at, updated_at`

func scanRegion(row interface{ Scan(...any) error }) (inventory.Region, error) {
	var r inventory.Region
	err := row.Scan(&r.ID, &r.LocationID, &r.Name, &r.X, &r.Y, &r.Width, &r.Height, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO regions (`+regionCols+`, pos)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
		         (SELECT COALESCE(MAX(pos), -1) + 1 FROM regions WHERE location_id = ?))`,
		r.ID, r.LocationID, r.Name, r.X, r.Y, r.Width, r.Height, r.CreatedAt, r.UpdatedAt,
		r.LocationID)
	if err != nil {
		return inventory.Region{}, inventory.WrapError(inventory.ErrCodeStore, err, "insert region")
	}
	return r, nil
}

func (s *Store) Region(ctx context.Context, id string) (inventory.Region, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+regionCols+` FROM regions WHERE id = ?`, id)
	r, err := scanRegion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Region{}, regionNotFound(id)
	}
	if err != nil {
		return inventory.Region{}, inventory.WrapError(inventory.ErrCodeStore, err, "select region")
	}
	return r, nil
}

func (s *Store) RegionsByLocation(ctx context.Context, locationID string) ([]inventory.Region, error) {
	if _, err := s.Location(ctx, locationID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+regionCols+` FROM regions WHERE location_id = ? ORDER BY pos`, locationID)
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "select regions")
	}
	defer rows.Close()

	out := []inventory.Region{}
	for rows.Next() {
		r, err := scanRegion(rows)
		if err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "scan region")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRegion(ctx context.Context, r inventory.Region) (inventory.Region, error) {
	if err := inventory.ValidateRegion(r); err != nil {
		return inventory.Region{}, err
	}
	current, err := s.Region(ctx, r.ID)
	if err != nil {
		return inventory.Region{}, err
	}
	r.CreatedAt = current.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE regions SET location_id = ?, name = ?, x = ?, y = ?, width = ?, height = ?, updated_at = ?
		 WHERE id = ?`,
		r.LocationID, r.Name, r.X, r.Y, r.Width, r.Height, r.UpdatedAt, r.ID)
	if err != nil {
		return inventory.Region{}, inventory.WrapError(inventory.ErrCodeStore, err, "update region")
	}
	return r, nil
}

func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	if _, err := s.Region(ctx, id); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "begin delete region")
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE items SET region_id = '' WHERE region_id = ?`, id); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "detach items")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM regions WHERE id = ?`, id); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "delete region")
	}
	if err := tx.Commit(); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "commit delete region")
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
	if _, err := s.Location(ctx, locationID); err != nil {
		return nil, err
	}

	existing, err := s.RegionsByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	created := map[string]time.Time{}
	for _, r := range existing {
		created[r.ID] = r.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "begin replace regions")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM regions WHERE location_id = ?`, locationID); err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "clear regions")
	}

	now := time.Now().UTC()
	surviving := map[string]bool{}
	out := make([]inventory.Region, 0, len(regions))
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
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO regions (`+regionCols+`, pos) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.LocationID, r.Name, r.X, r.Y, r.Width, r.Height, r.CreatedAt, r.UpdatedAt, pos); err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "insert region")
		}
		out = append(out, r)
	}
	for id := range created {
		if surviving[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE items SET region_id = '' WHERE region_id = ?`, id); err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "detach items")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "commit replace regions")
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// itemCols joins the display names of the referenced location and region.
const itemCols = `i.id, i.name, i.description, i.quantity, i.image_path, i.location_id, i.region_id,
	COALESCE(l.name, ''), COALESCE(r.name, ''), i.created_at, i.updated_at`

const itemFrom = ` FROM items i
	LEFT JOIN locations l ON l.id = i.location_id
	LEFT JOIN regions r ON r.id = i.region_id`

func scanItem(row interface{ Scan(...any) error }) (inventory.Item, error) {
	var it inventory.Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Quantity, &it.ImagePath,
		&it.LocationID, &it.RegionID, &it.LocationName, &it.RegionName, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, name, description, quantity, image_path, location_id, region_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Quantity, item.ImagePath,
		item.LocationID, item.RegionID, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeStore, err, "insert item")
	}
	return s.Item(ctx, item.ID)
}

func (s *Store) Item(ctx context.Context, id string) (inventory.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+itemFrom+` WHERE i.id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Item{}, itemNotFound(id)
	}
	if err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeStore, err, "select item")
	}
	return it, nil
}

func (s *Store) Items(ctx context.Context, f store.ItemFilter) ([]inventory.Item, error) {
	query := `SELECT ` + itemCols + itemFrom
	var (
		conds []string
		args  []any
	)
	if f.LocationID != "" {
		conds = append(conds, `i.location_id = ?`)
		args = append(args, f.LocationID)
	}
	if f.RegionID != "" {
		conds = append(conds, `i.region_id = ?`)
		args = append(args, f.RegionID)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY i.name`
	return s.queryItems(ctx, query, args...)
}

func (s *Store) UpdateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if err := inventory.ValidateItem(item); err != nil {
		return inventory.Item{}, err
	}
	if _, err := s.Item(ctx, item.ID); err != nil {
		return inventory.Item{}, err
	}
	if err := s.checkItemRefs(ctx, item); err != nil {
		return inventory.Item{}, err
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, quantity = ?, image_path = ?,
		 location_id = ?, region_id = ?, updated_at = ? WHERE id = ?`,
		item.Name, item.Description, item.Quantity, item.ImagePath,
		item.LocationID, item.RegionID, item.UpdatedAt, item.ID)
	if err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeStore, err, "update item")
	}
	return s.Item(ctx, item.ID)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "delete item")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return itemNotFound(id)
	}
	return nil
}

func (s *Store) SearchItems(ctx context.Context, query string) ([]inventory.Item, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []inventory.Item{}, nil
	}
	pattern := "%" + strings.ToLower(q) + "%"
	return s.queryItems(ctx,
		`SELECT `+itemCols+itemFrom+`
		 WHERE LOWER(i.name) LIKE ? OR LOWER(i.description) LIKE ?
		 ORDER BY i.name`, pattern, pattern)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]inventory.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, inventory.WrapError(inventory.ErrCodeStore, err, "select items")
	}
	defer rows.Close()

	out := []inventory.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, inventory.WrapError(inventory.ErrCodeStore, err, "scan item")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return inventory.WrapError(inventory.ErrCodeStore, err, "ping sqlite")
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

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
