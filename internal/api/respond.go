package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not found.")
}

// decodeBody reads a JSON object into v. Unknown fields are ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return false
	}
	return true
}

// idParam parses the {id} route parameter. Unparseable ids are reported
// as not found.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		notFound(w)
		return 0, false
	}
	return id, true
}

// fail maps a store or search error to a response. Details of unexpected
// errors only go to the log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr)
	case errors.Is(err, location.ErrNotFound):
		notFound(w)
	case errors.Is(err, location.ErrCategoryInUse):
		writeError(w, http.StatusConflict, "Category is still used by locations.")
	default:
		s.log.Error(msg,
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
	}
}
