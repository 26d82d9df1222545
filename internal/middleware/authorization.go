package middleware

import (
	"net/http"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/utils"
)

// RequireAuth blocks when no user is present in context (set by WithAuth).
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := utils.GetString(r.Context(), CtxUserID)
		if !ok || uid == "" {
			utils.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles allows the request only when the session role is in the list.
// Ownership-level checks (dev on assigned ticket, submitter on own ticket)
// live in the workflow engine, which has the loaded ticket.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := utils.GetString(r.Context(), CtxRole)
			role, err := models.ParseRole(s)
			if err != nil {
				utils.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			if _, ok := allowed[role]; !ok {
				utils.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
