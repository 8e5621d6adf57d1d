package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sells-group/geodir/internal/search"
)

// categoryFilter reads the category query parameter, which may be an id or
// a slug.
func categoryFilter(r *http.Request, f *search.Filters) {
	v := strings.TrimSpace(r.URL.Query().Get("category"))
	if v == "" {
		return
	}
	if id, err := strconv.ParseInt(v, 10, 64); err == nil {
		f.CategoryID = &id
		return
	}
	f.CategorySlug = v
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	var f search.Filters
	categoryFilter(r, &f)

	locs, err := s.public.Search(r.Context(), f, r.URL.Query().Get("search"))
	if err != nil {
		s.fail(w, r, err, "list locations")
		return
	}
	writeJSON(w, http.StatusOK, NewFeatureCollection(locs))
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	l, err := s.store.GetLocation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "get location")
		return
	}
	if !l.PubliclyVisible() {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, NewFeature(l))
}
