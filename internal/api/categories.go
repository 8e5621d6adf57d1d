package api

import (
	"net/http"

	"github.com/sells-group/geodir/internal/model"
)

const categoriesKey = "categories"

func (s *Server) listCategories(r *http.Request) ([]model.Category, error) {
	if s.categories != nil {
		if v, ok := s.categories.Get(categoriesKey); ok {
			return v.([]model.Category), nil
		}
	}
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []model.Category{}
	}
	if s.categories != nil {
		s.categories.SetDefault(categoriesKey, cats)
	}
	return cats, nil
}

// flushCategories drops the cached list after a category write.
func (s *Server) flushCategories() {
	if s.categories != nil {
		s.categories.Flush()
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.listCategories(r)
	if err != nil {
		s.fail(w, r, err, "list categories")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "get category")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
