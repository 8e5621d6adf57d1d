package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
	"github.com/sells-group/geodir/internal/search"
)

func (s *Server) adminRoutes(r chi.Router) {
	r.Get("/locations", s.handleAdminSearch)
	r.Post("/locations", s.handleAdminCreateLocation)
	r.Get("/locations/{id}", s.handleAdminGetLocation)
	r.Patch("/locations/{id}", s.handleAdminPatchLocation)
	r.Post("/locations/{id}/geocode", s.handleAdminGeocode)

	r.Post("/categories", s.handleAdminCreateCategory)
	r.Patch("/categories/{id}", s.handleAdminPatchCategory)
	r.Delete("/categories/{id}", s.handleAdminDeleteCategory)
}

// locationPatchRequest is the admin write body. Coordinates and category
// accept null to clear them.
type locationPatchRequest struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	Website     *string `json:"website"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Description *string `json:"description"`

	Coordinates json.RawMessage `json:"coordinates"`
	Category    json.RawMessage `json:"category"`

	GeographicEntity *bool `json:"geographic_entity"`
	Published        *bool `json:"published"`
	InexactLocation  *bool `json:"inexact_location"`
	UserSubmitted    *bool `json:"user_submitted"`
}

var jsonNull = []byte("null")

func (req locationPatchRequest) patch() (model.LocationPatch, error) {
	p := model.LocationPatch{
		Name:             req.Name,
		Address:          req.Address,
		Website:          req.Website,
		Email:            req.Email,
		Phone:            req.Phone,
		Description:      req.Description,
		GeographicEntity: req.GeographicEntity,
		Published:        req.Published,
		InexactLocation:  req.InexactLocation,
		UserSubmitted:    req.UserSubmitted,
	}
	verr := &model.ValidationError{}

	switch {
	case len(req.Coordinates) == 0:
	case bytes.Equal(req.Coordinates, jsonNull):
		p.ClearCoordinates = true
	default:
		var pt model.Point
		if err := json.Unmarshal(req.Coordinates, &pt); err != nil {
			verr.Add(model.FieldCoordinates, `Expected an object with "lon" and "lat".`)
		} else {
			p.Coordinates = &pt
		}
	}

	switch {
	case len(req.Category) == 0:
	case bytes.Equal(req.Category, jsonNull):
		p.ClearCategory = true
	default:
		var id int64
		if err := json.Unmarshal(req.Category, &id); err != nil {
			verr.Add(model.FieldCategory, "Expected a category id.")
		} else {
			p.CategoryID = &id
		}
	}
	return p, verr.OrNil()
}

// boolParam parses an optional boolean query parameter.
func boolParam(r *http.Request, name string) (*bool, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, false
	}
	return &b, true
}

func (s *Server) handleAdminSearch(w http.ResponseWriter, r *http.Request) {
	var f search.Filters
	categoryFilter(r, &f)

	var ok bool
	if f.Published, ok = boolParam(r, "published"); !ok {
		writeError(w, http.StatusBadRequest, "published must be a boolean.")
		return
	}
	if f.GeographicEntity, ok = boolParam(r, "geographic_entity"); !ok {
		writeError(w, http.StatusBadRequest, "geographic_entity must be a boolean.")
		return
	}

	locs, err := s.internal.Search(r.Context(), f, r.URL.Query().Get("search"))
	if err != nil {
		s.fail(w, r, err, "admin search")
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (s *Server) handleAdminCreateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := req.patch()
	if err != nil {
		s.fail(w, r, err, "admin create location")
		return
	}

	l := model.NewLocation("")
	p.Apply(l)
	if err := s.store.CreateLocation(r.Context(), l); err != nil {
		s.fail(w, r, err, "admin create location")
		return
	}
	s.log.Info("location created", zap.Int64("location_id", l.ID))
	s.hook.AfterCreate(r.Context(), l)
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleAdminGetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	l, err := s.store.GetLocation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "admin get location")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type updatedLocation struct {
	Location *model.Location `json:"location"`
	Changed  []string        `json:"changed"`
	Geocode  bool            `json:"geocode"`
}

func (s *Server) handleAdminPatchLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req locationPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := req.patch()
	if err != nil {
		s.fail(w, r, err, "admin update location")
		return
	}

	l, changed, err := s.store.UpdateLocation(r.Context(), id, p)
	if err != nil {
		s.fail(w, r, err, "admin update location")
		return
	}
	if changed == nil {
		changed = []string{}
	}
	dispatched := s.hook.AfterUpdate(r.Context(), l, changed)
	s.log.Info("location updated",
		zap.Int64("location_id", id),
		zap.Strings("changed", changed),
		zap.Bool("geocode", dispatched),
	)
	writeJSON(w, http.StatusOK, updatedLocation{Location: l, Changed: changed, Geocode: dispatched})
}

func (s *Server) handleAdminGeocode(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	l, err := s.store.GetLocation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "admin geocode")
		return
	}
	writeJSON(w, http.StatusOK, s.enricher.EnrichOne(r.Context(), l))
}

type categoryPatchRequest struct {
	Slug          *string `json:"slug"`
	LabelSingular *string `json:"label_singular"`
	LabelPlural   *string `json:"label_plural"`
}

func (s *Server) handleAdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c model.Category
	if !decodeBody(w, r, &c) {
		return
	}
	c.ID = 0
	if err := s.store.CreateCategory(r.Context(), &c); err != nil {
		s.fail(w, r, err, "admin create category")
		return
	}
	s.flushCategories()
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleAdminPatchCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req categoryPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.store.UpdateCategory(r.Context(), id, location.CategoryPatch(req))
	if err != nil {
		s.fail(w, r, err, "admin update category")
		return
	}
	s.flushCategories()
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	policy := s.cfg.DeletePolicy
	if v := r.URL.Query().Get("policy"); v != "" {
		policy = location.DeletePolicy(v)
	}
	policy, err := location.ParseDeletePolicy(string(policy))
	if err != nil {
		writeError(w, http.StatusBadRequest, "policy must be one of restrict, nullify, cascade.")
		return
	}

	res, err := s.store.DeleteCategory(r.Context(), id, policy)
	if err != nil {
		s.fail(w, r, err, "admin delete category")
		return
	}
	s.flushCategories()
	s.log.Info("category deleted",
		zap.Int64("category_id", id),
		zap.String("policy", string(policy)),
		zap.Int64("affected", res.Affected),
	)
	writeJSON(w, http.StatusOK, res)
}
