package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/onesoftuk/bugflow/internal/apperr"
	"github.com/onesoftuk/bugflow/internal/middleware"
	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository"
	"github.com/onesoftuk/bugflow/internal/utils"
	"github.com/onesoftuk/bugflow/internal/workflow"
)

// TicketHTTP wires the ticket endpoints to the workflow engine. Handlers
// decode/encode; every rule lives in the engine.
type TicketHTTP struct {
	engine *workflow.Engine
	users  repository.UserStore
}

func NewTicketHTTP(engine *workflow.Engine, users repository.UserStore) *TicketHTTP {
	return &TicketHTTP{engine: engine, users: users}
}

// actorFrom resolves the session uid to a full actor. An inactive or deleted
// user no longer has a valid session.
func actorFrom(r *http.Request, users repository.UserStore) (models.Actor, error) {
	uid, _ := utils.GetString(r.Context(), middleware.CtxUserID)
	if uid == "" {
		return models.Actor{}, apperr.ErrUnauthenticated
	}
	u, err := users.GetByID(r.Context(), uid)
	if err != nil {
		return models.Actor{}, err
	}
	if u == nil || !u.Active {
		return models.Actor{}, apperr.ErrUnauthenticated
	}
	return u.Actor(), nil
}

func ticketFilterFromQuery(qv url.Values) repository.TicketFilter {
	return repository.TicketFilter{
		Q:          strings.TrimSpace(qv.Get("q")),
		Status:     models.Status(strings.TrimSpace(qv.Get("status"))),
		Priority:   models.Priority(strings.TrimSpace(qv.Get("priority"))),
		Type:       models.TicketType(strings.TrimSpace(qv.Get("type"))),
		App:        strings.TrimSpace(qv.Get("app")),
		AssigneeID: strings.TrimSpace(qv.Get("assignee")),
		Limit:      utils.QueryInt(qv, "limit", 20),
		Offset:     utils.QueryInt(qv, "offset", 0),
		Sort:       qv.Get("sort"),
		Order:      qv.Get("order"),
	}
}

// POST /api/tickets
func (h *TicketHTTP) Create() http.HandlerFunc {
	type inDTO struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Type        string `json:"type"`
		App         string `json:"app"`
		Priority    string `json:"priority"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		var in inDTO
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		t, err := h.engine.CreateTicket(r.Context(), actor, workflow.CreateInput{
			Title:       in.Title,
			Description: in.Description,
			Type:        in.Type,
			App:         in.App,
			Priority:    in.Priority,
		})
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, t)
	}
}

// GET /api/tickets
func (h *TicketHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		items, total, err := h.engine.ListTickets(r.Context(), actor, ticketFilterFromQuery(r.URL.Query()))
		if err != nil {
			utils.Err(w, err)
			return
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		utils.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
	}
}

// GET /api/tickets/{id}
func (h *TicketHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		t, err := h.engine.GetTicket(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, t)
	}
}

// PATCH /api/tickets/{id}/status
func (h *TicketHTTP) ChangeStatus() http.HandlerFunc {
	type inDTO struct {
		Status  string `json:"status"`
		Comment string `json:"comment"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		var in inDTO
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		t, err := h.engine.ChangeStatus(r.Context(), actor, chi.URLParam(r, "id"), in.Status, in.Comment)
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, t)
	}
}

// PATCH /api/tickets/{id}/assign
func (h *TicketHTTP) Assign() http.HandlerFunc {
	type inDTO struct {
		AssignedToUserID *string `json:"assignedToUserId"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		var in inDTO
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		t, err := h.engine.AssignTicket(r.Context(), actor, chi.URLParam(r, "id"), in.AssignedToUserID)
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, t)
	}
}

// DELETE /api/tickets/{id}
func (h *TicketHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		if err := h.engine.DeleteTicket(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
			utils.Err(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /api/tickets/{id}/comments
func (h *TicketHTTP) ListComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		comments, err := h.engine.ListComments(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]any{"items": comments})
	}
}

// POST /api/tickets/{id}/comments
func (h *TicketHTTP) AddComment() http.HandlerFunc {
	type inDTO struct {
		Content    string `json:"content"`
		IsInternal bool   `json:"isInternal"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		var in inDTO
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		c, err := h.engine.AddComment(r.Context(), actor, chi.URLParam(r, "id"), in.Content, in.IsInternal)
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, c)
	}
}

// GET /api/tickets/{id}/history
func (h *TicketHTTP) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		history, err := h.engine.ListHistory(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]any{"items": history})
	}
}
