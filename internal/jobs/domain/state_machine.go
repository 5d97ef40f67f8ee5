// Package domain provides core business rules for the jobs bounded context:
// the lifecycle state machine and its actor guards. Everything here is pure
// validation; callers apply the mutation only when validation passes.
package domain

import (
	"fmt"
	"sort"
	"strings"

	"vakwerk_backend/platform/apperr"
)

// Status is a job lifecycle status.
type Status string

const (
	StatusDraft                 Status = "DRAFT"
	StatusPendingMatch          Status = "PENDING_MATCH"
	StatusMatched               Status = "MATCHED"
	StatusPendingPriceAgreement Status = "PENDING_PRICE_AGREEMENT"
	StatusScheduled             Status = "SCHEDULED"
	StatusProviderAccepted      Status = "PROVIDER_ACCEPTED"
	StatusProviderEnRoute       Status = "PROVIDER_EN_ROUTE"
	StatusInProgress            Status = "IN_PROGRESS"
	StatusCompleted             Status = "COMPLETED"
	StatusDisputed              Status = "DISPUTED"
	StatusRefunded              Status = "REFUNDED"
	StatusCancelledByCustomer   Status = "CANCELLED_BY_CUSTOMER"
	StatusCancelledByProvider   Status = "CANCELLED_BY_PROVIDER"
	StatusCancelledBySystem     Status = "CANCELLED_BY_SYSTEM"
)

// ActorType identifies who is driving a transition.
type ActorType string

const (
	ActorCustomer ActorType = "customer"
	ActorProvider ActorType = "provider"
	ActorAdmin    ActorType = "admin"
	ActorSystem   ActorType = "system"
)

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := transitions[s]; !ok && !isTerminal(s) {
		return "", apperr.Validation(fmt.Sprintf("unknown job status %q", raw))
	}
	return s, nil
}

// transitions maps each status to the set of structurally allowed targets.
// CANCELLED_BY_SYSTEM is handled separately: it is reachable from any
// non-terminal status and is itself fully terminal.
//
// Negotiated level-3/4 jobs travel MATCHED -> PENDING_PRICE_AGREEMENT ->
// SCHEDULED -> PROVIDER_ACCEPTED within the same state space as everything
// else; there is no parallel machine for price negotiation.
var transitions = map[Status][]Status{
	StatusDraft:                 {StatusPendingMatch, StatusCancelledByCustomer},
	StatusPendingMatch:          {StatusMatched, StatusCancelledByCustomer},
	StatusMatched:               {StatusPendingPriceAgreement, StatusProviderAccepted, StatusCancelledByCustomer, StatusCancelledByProvider},
	StatusPendingPriceAgreement: {StatusScheduled},
	StatusScheduled:             {StatusPendingPriceAgreement, StatusProviderAccepted},
	StatusProviderAccepted:      {StatusProviderEnRoute, StatusCancelledByProvider},
	StatusProviderEnRoute:       {StatusInProgress, StatusCancelledByProvider},
	StatusInProgress:            {StatusPendingPriceAgreement, StatusCompleted, StatusCancelledByProvider},
	StatusDisputed:              {StatusRefunded, StatusCompleted},
	StatusCompleted:             {StatusDisputed},
}

// terminal statuses have no outgoing transitions at all.
var terminal = map[Status]bool{
	StatusRefunded:            true,
	StatusCancelledByCustomer: true,
	StatusCancelledByProvider: true,
	StatusCancelledBySystem:   true,
}

func isTerminal(s Status) bool { return terminal[s] }

// customerCancellable are the statuses a customer may cancel from.
var customerCancellable = map[Status]bool{
	StatusDraft:        true,
	StatusPendingMatch: true,
	StatusMatched:      true,
}

// providerCancellable are the statuses a provider may cancel from.
var providerCancellable = map[Status]bool{
	StatusMatched:          true,
	StatusProviderAccepted: true,
	StatusProviderEnRoute:  true,
	StatusInProgress:       true,
}

// providerDriven are targets only a provider, the system, or an admin may drive.
var providerDriven = map[Status]bool{
	StatusProviderAccepted: true,
	StatusProviderEnRoute:  true,
	StatusInProgress:       true,
	StatusCompleted:        true,
}

// Validate checks that moving a job from current to target is structurally
// legal and permitted for the acting party. It is deterministic and
// side-effect-free; a denial carries the allowed targets for current.
func Validate(current, target Status, actor ActorType) error {
	if !structurallyAllowed(current, target) {
		return apperr.InvalidState(fmt.Sprintf(
			"cannot transition job from %s to %s; allowed targets: %s",
			current, target, strings.Join(statusNames(structuralTargets(current)), ", "),
		))
	}
	return checkGuards(current, target, actor)
}

// ValidTargets returns the sorted subset of targets from current that pass
// both the structural check and the actor guards. Used for UI affordance.
func ValidTargets(current Status, actor ActorType) []Status {
	candidates := structuralTargets(current)
	allowed := make([]Status, 0, len(candidates))
	for _, target := range candidates {
		if checkGuards(current, target, actor) == nil {
			allowed = append(allowed, target)
		}
	}
	sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })
	return allowed
}

func structurallyAllowed(current, target Status) bool {
	if target == StatusCancelledBySystem {
		return !isTerminal(current)
	}
	for _, t := range transitions[current] {
		if t == target {
			return true
		}
	}
	return false
}

func structuralTargets(current Status) []Status {
	targets := append([]Status(nil), transitions[current]...)
	if !isTerminal(current) {
		targets = append(targets, StatusCancelledBySystem)
	}
	return targets
}

func checkGuards(current, target Status, actor ActorType) error {
	switch target {
	case StatusCancelledByCustomer:
		if actor != ActorCustomer && actor != ActorAdmin {
			return apperr.Forbidden(fmt.Sprintf("actor %s may not cancel on behalf of the customer", actor))
		}
		if !customerCancellable[current] {
			return apperr.InvalidState(fmt.Sprintf("customer may not cancel a job in %s", current))
		}
	case StatusCancelledByProvider:
		if actor != ActorProvider && actor != ActorAdmin {
			return apperr.Forbidden(fmt.Sprintf("actor %s may not cancel on behalf of the provider", actor))
		}
		if !providerCancellable[current] {
			return apperr.InvalidState(fmt.Sprintf("provider may not cancel a job in %s", current))
		}
	case StatusCancelledBySystem:
		if actor != ActorSystem && actor != ActorAdmin {
			return apperr.Forbidden("only the system or an admin may cancel a job system-side")
		}
	default:
		if providerDriven[target] && actor == ActorCustomer {
			return apperr.Forbidden(fmt.Sprintf("customer may not move a job to %s", target))
		}
	}
	return nil
}

func statusNames(statuses []Status) []string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}

// IsTerminal reports whether a job status admits no further transitions.
func IsTerminal(s Status) bool {
	return isTerminal(s)
}
