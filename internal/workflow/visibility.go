package workflow

import "github.com/onesoftuk/bugflow/internal/models"

// CanReadTicket applies the read-scoping rules: plain users see their own
// tickets, devs see tickets they submitted or are assigned to, admins see all.
func CanReadTicket(actor models.Actor, t *models.Ticket) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDev:
		if t.SubmitterID == actor.ID {
			return true
		}
		return t.AssignedToID != nil && *t.AssignedToID == actor.ID
	default:
		return t.SubmitterID == actor.ID
	}
}

// FilterComments drops internal comments for roles that may not see them.
func FilterComments(role models.Role, comments []models.Comment) []models.Comment {
	if role.CanSeeInternal() {
		return comments
	}
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		if !c.IsInternal {
			out = append(out, c)
		}
	}
	return out
}

// FilterHistory drops internal-note entries for roles that may not see them.
func FilterHistory(role models.Role, history []models.HistoryEntry) []models.HistoryEntry {
	if role.CanSeeInternal() {
		return history
	}
	out := make([]models.HistoryEntry, 0, len(history))
	for _, h := range history {
		if h.Kind != models.HistoryInternalNote {
			out = append(out, h)
		}
	}
	return out
}
