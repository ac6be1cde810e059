package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmap/shelfmap/pkg/inventory"
)

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.store.RegionsByLocation(r.Context(), chi.URLParam(r, "locationID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, regions)
}

func (s *Server) handleCreateRegion(w http.ResponseWriter, r *http.Request) {
	var region inventory.Region
	if err := decodeJSON(r, &region); err != nil {
		s.writeError(w, r, err)
		return
	}
	region.LocationID = chi.URLParam(r, "locationID")
	created, err := s.store.CreateRegion(r.Context(), region)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

// handleReplaceRegions swaps a location's whole region set. This is the
// endpoint the editor saves through: the body is the complete new set, in
// draw order.
func (s *Server) handleReplaceRegions(w http.ResponseWriter, r *http.Request) {
	var regions []inventory.Region
	if err := decodeJSON(r, &regions); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.store.ReplaceRegions(r.Context(), chi.URLParam(r, "locationID"), regions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	region, err := s.store.Region(r.Context(), chi.URLParam(r, "regionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, region)
}

func (s *Server) handleUpdateRegion(w http.ResponseWriter, r *http.Request) {
	var region inventory.Region
	if err := decodeJSON(r, &region); err != nil {
		s.writeError(w, r, err)
		return
	}
	region.ID = chi.URLParam(r, "regionID")
	if region.LocationID == "" {
		current, err := s.store.Region(r.Context(), region.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		region.LocationID = current.LocationID
	}
	updated, err := s.store.UpdateRegion(r.Context(), region)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRegion(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRegion(r.Context(), chi.URLParam(r, "regionID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
