package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/notify"
	"github.com/onesoftuk/bugflow/internal/repository"
	"github.com/onesoftuk/bugflow/internal/utils"
)

// AdminHTTP serves the admin surface: unscoped ticket list, user management,
// settings, email logs, and dashboard counters. Routes are mounted behind
// RequireRoles(admin); handlers trust that gate.
type AdminHTTP struct {
	tickets    repository.TicketStore
	users      repository.UserStore
	settings   repository.SettingsStore
	emailLogs  repository.EmailLogStore
	dispatcher *notify.Dispatcher
}

func NewAdminHTTP(tickets repository.TicketStore, users repository.UserStore, settings repository.SettingsStore, emailLogs repository.EmailLogStore, dispatcher *notify.Dispatcher) *AdminHTTP {
	return &AdminHTTP{tickets: tickets, users: users, settings: settings, emailLogs: emailLogs, dispatcher: dispatcher}
}

// GET /api/admin/tickets
func (h *AdminHTTP) Tickets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, total, err := h.tickets.List(r.Context(), ticketFilterFromQuery(r.URL.Query()))
		if err != nil {
			utils.Err(w, err)
			return
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		utils.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
	}
}

// GET /api/admin/users
func (h *AdminHTTP) Users() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qv := r.URL.Query()
		var active *bool
		if s := qv.Get("active"); s != "" {
			v, _ := strconv.ParseBool(s)
			active = &v
		}
		role := models.Role(qv.Get("role"))
		users, total, err := h.users.List(r.Context(), qv.Get("q"), role, active,
			utils.QueryInt(qv, "limit", 20), utils.QueryInt(qv, "offset", 0))
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]any{"items": users, "total": total})
	}
}

// GET /api/admin/devs lists assignment candidates (active devs and admins).
func (h *AdminHTTP) Devs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := true
		devs, _, err := h.users.List(r.Context(), "", models.RoleDev, &active, 200, 0)
		if err != nil {
			utils.Err(w, err)
			return
		}
		admins, _, err := h.users.List(r.Context(), "", models.RoleAdmin, &active, 200, 0)
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]any{"items": append(devs, admins...)})
	}
}

// PATCH /api/admin/users/{id}/role
func (h *AdminHTTP) UpdateUserRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		role, err := models.ParseRole(req.Role)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		u, err := h.users.UpdateRole(r.Context(), chi.URLParam(r, "id"), role)
		if err != nil {
			utils.Err(w, err)
			return
		}
		if u == nil {
			utils.Error(w, http.StatusNotFound, "user not found")
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// PATCH /api/admin/users/{id}/active
func (h *AdminHTTP) SetUserActive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Active bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		u, err := h.users.SetActive(r.Context(), chi.URLParam(r, "id"), req.Active)
		if err != nil {
			utils.Err(w, err)
			return
		}
		if u == nil {
			utils.Error(w, http.StatusNotFound, "user not found")
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}

// GET /api/admin/summary
// Returns { open, resolved7d, highCriticalOpen }.
func (h *AdminHTTP) Summary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		open, err := h.tickets.CountByStatuses(r.Context(), []models.Status{models.StatusResolved, models.StatusClosed}, false)
		if err != nil {
			utils.Err(w, err)
			return
		}
		resolved7d, err := h.tickets.CountResolvedSince(r.Context(), time.Now().Add(-7*24*time.Hour))
		if err != nil {
			utils.Err(w, err)
			return
		}
		highCritOpen, err := h.tickets.CountOpenByPriorities(r.Context(), []models.Priority{models.PriorityHigh, models.PriorityCritical})
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]int{
			"open":             open,
			"resolved7d":       resolved7d,
			"highCriticalOpen": highCritOpen,
		})
	}
}

// GET /api/admin/settings
func (h *AdminHTTP) GetSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.settings.Get(r.Context())
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, s)
	}
}

// PUT /api/admin/settings
func (h *AdminHTTP) UpdateSettings() http.HandlerFunc {
	type inDTO struct {
		SMTPEnabled     bool     `json:"smtpEnabled"`
		SMTPHost        string   `json:"smtpHost"`
		SMTPPort        int      `json:"smtpPort"`
		SMTPUsername    string   `json:"smtpUsername"`
		SMTPPassword    *string  `json:"smtpPassword"`
		SMTPFrom        string   `json:"smtpFrom"`
		AdminRecipients []string `json:"adminRecipients"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in inDTO
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		s, err := h.settings.Get(r.Context())
		if err != nil {
			utils.Err(w, err)
			return
		}
		s.SMTPEnabled = in.SMTPEnabled
		s.SMTPHost = in.SMTPHost
		s.SMTPPort = in.SMTPPort
		s.SMTPUsername = in.SMTPUsername
		s.SMTPFrom = in.SMTPFrom
		s.AdminRecipients = in.AdminRecipients
		// Password is write-only: omitted means keep the stored one.
		if in.SMTPPassword != nil {
			s.SMTPPassword = *in.SMTPPassword
		}
		if err := h.settings.Update(r.Context(), s); err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, s)
	}
}

// POST /api/admin/settings/test-email
func (h *AdminHTTP) TestEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To string `json:"to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
			utils.Error(w, http.StatusBadRequest, "recipient is required")
			return
		}
		s, err := h.settings.Get(r.Context())
		if err != nil {
			utils.Err(w, err)
			return
		}
		body := "This is a test message confirming the SMTP configuration works."
		h.dispatcher.Deliver(r.Context(), s, []string{req.To},
			"Test email", "<p>"+body+"</p>", body)
		// Delivery outcome lands in the email log; the call itself only
		// confirms the attempt was made.
		utils.JSON(w, http.StatusAccepted, map[string]string{"status": "attempted"})
	}
}

// GET /api/admin/email-logs
func (h *AdminHTTP) EmailLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qv := r.URL.Query()
		logs, total, err := h.emailLogs.List(r.Context(), utils.QueryInt(qv, "limit", 50), utils.QueryInt(qv, "offset", 0))
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]any{"items": logs, "total": total})
	}
}
