package reply

import (
	"context"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

// Suppressor is the part of the suppression gate the reply path writes to.
type Suppressor interface {
	Add(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource) (bool, error)
}

// ApplySuppression adds the sender to the suppression list when the action
// calls for it: "suppress" as an unsubscribe, "log_and_remove" as a manual
// removal. It reports whether a new entry was written.
func ApplySuppression(ctx context.Context, s Suppressor, action domain.RoutedAction, source domain.SuppressionSource) (bool, error) {
	var reason domain.SuppressionReason
	switch action.Action {
	case domain.ActionSuppress:
		reason = domain.ReasonUnsubscribe
	case domain.ActionLogAndRemove:
		reason = domain.ReasonManual
	default:
		return false, nil
	}
	return s.Add(ctx, action.Email, reason, source)
}
