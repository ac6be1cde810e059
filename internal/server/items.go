package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

func itemView(item inventory.Item) inventory.Item {
	item.ImagePath = uploadPath(item.ImagePath)
	return item
}

func itemViews(items []inventory.Item) []inventory.Item {
	out := make([]inventory.Item, 0, len(items))
	for _, item := range items {
		out = append(out, itemView(item))
	}
	return out
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	f := store.ItemFilter{
		LocationID: r.URL.Query().Get("locationId"),
		RegionID:   r.URL.Query().Get("regionId"),
	}
	items, err := s.store.Items(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemViews(items))
}

// readItemRequest accepts a JSON body or a multipart form with an optional
// image file, like readLocationRequest.
func (s *Server) readItemRequest(r *http.Request) (inventory.Item, error) {
	var item inventory.Item
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := decodeJSON(r, &item); err != nil {
			return inventory.Item{}, err
		}
		item.ImagePath = storedFilename(item.ImagePath)
		return item, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeInvalidInput, err, "parse form")
	}
	item.Name = r.FormValue("name")
	item.Description = r.FormValue("description")
	item.LocationID = r.FormValue("locationId")
	item.RegionID = r.FormValue("regionId")
	if q := r.FormValue("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return inventory.Item{}, inventory.WrapError(inventory.ErrCodeInvalidQuantity, err, "parse quantity %q", q)
		}
		item.Quantity = n
	}

	file, header, err := r.FormFile("image")
	switch err {
	case nil:
		defer file.Close()
		name, _, err := s.saveUpload(file, header)
		if err != nil {
			return inventory.Item{}, err
		}
		item.ImagePath = name
	case http.ErrMissingFile:
	default:
		return inventory.Item{}, inventory.WrapError(inventory.ErrCodeInvalidInput, err, "read image")
	}
	return item, nil
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.readItemRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.store.CreateItem(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, itemView(created))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.Item(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemView(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")
	current, err := s.store.Item(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.readItemRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item.ID = id
	if item.ImagePath == "" {
		item.ImagePath = storedFilename(current.ImagePath)
	}
	updated, err := s.store.UpdateItem(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if prev := storedFilename(current.ImagePath); prev != "" && prev != updated.ImagePath {
		s.removeUpload(prev)
	}
	s.writeJSON(w, http.StatusOK, itemView(updated))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")
	current, err := s.store.Item(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteItem(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.removeUpload(storedFilename(current.ImagePath))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.SearchItems(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemViews(items))
}

// handleLED answers "where is this item": the item's region and the
// region's center point, which a hardware indicator can light up.
func (s *Server) handleLED(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := s.store.Item(ctx, chi.URLParam(r, "itemID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if item.LocationID == "" || item.RegionID == "" {
		s.writeError(w, r, inventory.NewError(inventory.ErrCodeInvalidInput,
			"item %s has no region to point at", item.ID))
		return
	}
	loc, err := s.store.Location(ctx, item.LocationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	region, err := s.store.Region(ctx, item.RegionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inventory.LEDTarget{
		Item:     itemView(item),
		Location: locationView(loc),
		Region:   region,
		Position: region.Center(),
	})
}
