// Package routing turns extracted metadata into a destination collection
// and a source label. Pure decision tables, no I/O.
package routing

import "github.com/weapplyse/weapply-pm/core/domain"

// Resolver applies the routing policy's decision table.
type Resolver struct {
	policy *domain.RoutingPolicy
}

// NewResolver creates a resolver for the given policy.
func NewResolver(policy *domain.RoutingPolicy) *Resolver {
	return &Resolver{policy: policy}
}

// Resolve picks the destination for a message. First match wins:
//
//	internal, not forwarded          -> inbox
//	internal forward                 -> clients if a client label was assigned, else external
//	external direct                  -> clients if a client label was assigned, else external
//	anything else                    -> inbox
func (r *Resolver) Resolve(meta *domain.EmailMetadata, hasClientLabel bool) domain.Destination {
	switch {
	case meta.IsInternal && !meta.IsForwarded:
		return domain.DestinationInbox

	case meta.IsInternalForward:
		if hasClientLabel {
			return domain.DestinationClients
		}
		return domain.DestinationExternal

	case meta.IsExternalDirect:
		if hasClientLabel {
			return domain.DestinationClients
		}
		return domain.DestinationExternal

	default:
		return domain.DestinationInbox
	}
}

// SourceLabel returns exactly one source label by precedence, keeping the
// labels mutually exclusive.
func (r *Resolver) SourceLabel(meta *domain.EmailMetadata) string {
	switch {
	case meta.IsInternalForward:
		return domain.LabelInternalForward
	case meta.IsExternalDirect:
		return domain.LabelExternalDirect
	case meta.IsForwarded:
		return domain.LabelForwarded
	default:
		return domain.LabelEmail
	}
}
