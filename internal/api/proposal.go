package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/geodir/internal/model"
)

// proposalRequest lists the only fields a public submission may set.
type proposalRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Category    *int64 `json:"category"`
}

type proposalResponse struct {
	ID int64 `json:"id"`
	proposalRequest
}

func (p proposalRequest) location() *model.Location {
	l := model.NewLocation(strings.TrimSpace(p.Name))
	l.Address = strings.TrimSpace(p.Address)
	l.Description = strings.TrimSpace(p.Description)
	l.Website = strings.TrimSpace(p.Website)
	l.Email = strings.TrimSpace(p.Email)
	l.Phone = strings.TrimSpace(p.Phone)
	l.CategoryID = p.Category
	l.UserSubmitted = true
	l.Published = false
	return l
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	l := req.location()
	if err := model.ValidateProposal(l); err != nil {
		s.fail(w, r, err, "validate proposal")
		return
	}
	if err := s.store.CreateLocation(r.Context(), l); err != nil {
		s.fail(w, r, err, "create proposal")
		return
	}
	s.log.Info("location proposed", zap.Int64("location_id", l.ID))
	s.hook.AfterCreate(r.Context(), l)

	writeJSON(w, http.StatusCreated, proposalResponse{
		ID: l.ID,
		proposalRequest: proposalRequest{
			Name:        l.Name,
			Address:     l.Address,
			Description: l.Description,
			Website:     l.Website,
			Email:       l.Email,
			Phone:       l.Phone,
			Category:    l.CategoryID,
		},
	})
}
