package handlers

import (
	"net/http"

	"github.com/onesoftuk/bugflow/internal/utils"
)

// Health reports liveness only. The DB pool is pinged at startup; a broken
// pool surfaces as 500s on real endpoints, not here.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "bugflow"})
	}
}
