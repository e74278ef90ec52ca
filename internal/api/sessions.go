package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/persona-coach/internal/dialogue"
	"github.com/ashureev/persona-coach/internal/domain"
)

type createSessionResponse struct {
	ID    string            `json:"id"`
	State dialogue.Snapshot `json:"state"`
}

type personaRequest struct {
	Name       string          `json:"name"`
	Role       string          `json:"role"`
	Background string          `json:"background"`
	Expertise  json.RawMessage `json:"expertise"`
}

var errBadExpertise = errors.New("expertise must be a list of strings or a comma-separated string")

// expertise accepts either a JSON list or the raw comma-separated form field.
func (p personaRequest) expertise() ([]string, error) {
	if len(p.Expertise) == 0 || string(p.Expertise) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(p.Expertise, &list); err == nil {
		return list, nil
	}
	var raw string
	if err := json.Unmarshal(p.Expertise, &raw); err != nil {
		return nil, errBadExpertise
	}
	return domain.ParseExpertise(raw), nil
}

type companyRequest struct {
	CompanyID string `json:"company_id"`
}

type suggestionRequest struct {
	Text string `json:"text"`
}

func (h *Handler) createSession(w http.ResponseWriter, _ *http.Request) {
	s := h.sessions.Create()
	JSON(w, http.StatusCreated, createSessionResponse{ID: s.ID(), State: s.Snapshot()})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*dialogue.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Delete(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.limiter != nil {
		h.limiter.Forget(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitPersona(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req personaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	expertise, err := req.expertise()
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.SubmitPersona(req.Name, req.Role, req.Background, expertise); err != nil {
		h.writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) selectCompany(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req companyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CompanyID == "" {
		JSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "company_id is required",
			"fields": []string{"company_id"},
		})
		return
	}

	ctx, cancel := h.workContext(r)
	defer cancel()
	if err := s.SelectCompany(ctx, req.CompanyID); err != nil {
		h.writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) submitSuggestion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req suggestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.workContext(r)
	defer cancel()
	if err := s.SubmitSuggestion(ctx, req.Text); err != nil {
		h.writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) resetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Reset()
	if h.limiter != nil {
		h.limiter.Forget(s.ID())
	}
	JSON(w, http.StatusOK, s.Snapshot())
}
