package service

import (
	"github.com/yourorg/civictrack/internal/domain"
	"github.com/yourorg/civictrack/internal/featureflags"
)

// strictTransitions is the hardened status machine, enabled via
// FLAG_STRICT_TRANSITIONS. The default is fully permissive, matching the
// historical behavior where e.g. resolved complaints could be reopened to
// any status.
var strictTransitions = map[string][]string{
	domain.StatusPending: {domain.StatusActive},
	domain.StatusActive:  {domain.StatusResolved, domain.StatusPending},
}

// transitionAllowed is the single choke point for status transition
// policy. Callers never encode transition rules themselves.
func transitionAllowed(from, to string) bool {
	if !featureflags.Enabled("strict_transitions") {
		return true
	}
	if from == to {
		return true
	}
	for _, allowed := range strictTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}
