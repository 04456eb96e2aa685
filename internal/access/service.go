// Package access decides who may use the operator panel.
package access

import (
	"github.com/rs/zerolog"
)

// Authorizer checks membership in the fixed operator set. The set is copied
// on construction and never changes afterwards.
type Authorizer struct {
	operators map[int64]struct{}
	ordered   []int64
	logger    zerolog.Logger
}

// NewAuthorizer creates an authorizer for the given operator ids.
func NewAuthorizer(operators []int64, logger zerolog.Logger) *Authorizer {
	a := &Authorizer{
		operators: make(map[int64]struct{}, len(operators)),
		logger:    logger.With().Str("component", "access").Logger(),
	}
	for _, id := range operators {
		if _, dup := a.operators[id]; dup || id == 0 {
			continue
		}
		a.operators[id] = struct{}{}
		a.ordered = append(a.ordered, id)
	}
	return a
}

// IsOperator reports whether userID may perform operator actions.
func (a *Authorizer) IsOperator(userID int64) bool {
	_, ok := a.operators[userID]
	return ok
}

// Authorize is IsOperator with a log line for denied attempts.
func (a *Authorizer) Authorize(userID int64, action string) bool {
	if a.IsOperator(userID) {
		return true
	}
	a.logger.Warn().Int64("user_id", userID).Str("action", action).Msg("operator action denied")
	return false
}

// Operators returns the operator ids in configuration order.
func (a *Authorizer) Operators() []int64 {
	return append([]int64(nil), a.ordered...)
}
