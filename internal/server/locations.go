package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// locationView rewrites the stored image filename into its public URL.
func locationView(loc inventory.Location) inventory.Location {
	loc.ImagePath = uploadPath(loc.ImagePath)
	return loc
}

func locationViews(locs []inventory.Location) []inventory.Location {
	out := make([]inventory.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, locationView(loc))
	}
	return out
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	f := store.LocationFilter{
		ParentID:  r.URL.Query().Get("parentId"),
		RootsOnly: r.URL.Query().Get("root") == "true",
	}
	locs, err := s.store.Locations(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, locationViews(locs))
}

// readLocationRequest accepts either a JSON body or a multipart form with
// an optional image file. The multipart shape is what the web frontend
// sends; JSON is what the remote store backend sends.
func (s *Server) readLocationRequest(r *http.Request) (inventory.Location, error) {
	var loc inventory.Location
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := decodeJSON(r, &loc); err != nil {
			return inventory.Location{}, err
		}
		loc.ImagePath = storedFilename(loc.ImagePath)
		return loc, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeInvalidInput, err, "parse form")
	}
	loc.Name = r.FormValue("name")
	loc.Description = r.FormValue("description")
	loc.ParentID = r.FormValue("parentId")

	file, header, err := r.FormFile("image")
	switch err {
	case nil:
		defer file.Close()
		name, size, err := s.saveUpload(file, header)
		if err != nil {
			return inventory.Location{}, err
		}
		loc.ImagePath = name
		loc.ImageWidth = size.Width
		loc.ImageHeight = size.Height
	case http.ErrMissingFile:
	default:
		return inventory.Location{}, inventory.WrapError(inventory.ErrCodeInvalidInput, err, "read image")
	}
	return loc, nil
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.readLocationRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.store.CreateLocation(r.Context(), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, locationView(created))
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.store.Location(r.Context(), chi.URLParam(r, "locationID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, locationView(loc))
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "locationID")
	current, err := s.store.Location(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.readLocationRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loc.ID = id
	// An update without a new image keeps the existing one.
	if loc.ImagePath == "" {
		loc.ImagePath = current.ImagePath
		loc.ImageWidth = current.ImageWidth
		loc.ImageHeight = current.ImageHeight
	}
	updated, err := s.store.UpdateLocation(r.Context(), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if current.ImagePath != "" && current.ImagePath != updated.ImagePath {
		s.removeUpload(current.ImagePath)
	}
	s.writeJSON(w, http.StatusOK, locationView(updated))
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "locationID")
	current, err := s.store.Location(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteLocation(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.removeUpload(current.ImagePath)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	crumbs, err := s.store.Breadcrumbs(r.Context(), chi.URLParam(r, "locationID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, crumbs)
}
