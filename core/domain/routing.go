package domain

import "strings"

// Destination identifies the collection a triaged work item is routed to.
type Destination string

const (
	DestinationInbox    Destination = "inbox"
	DestinationClients  Destination = "clients"
	DestinationExternal Destination = "external"
)

// Source labels. Exactly one is attached per message, picked by
// precedence: internal-forward > external-direct > forwarded > email.
const (
	LabelInternalForward = "internal-forward"
	LabelExternalDirect  = "external-direct"
	LabelForwarded       = "forwarded"
	LabelEmail           = "email"
)

// RoutingPolicy is the static, externally supplied routing configuration.
type RoutingPolicy struct {
	// InternalDomain is the organization's own email domain. Senders on it
	// are never labeled as clients.
	InternalDomain string

	// IntakeAddress is the mailbox the reformatter delivers to. Its tokens
	// are excluded when recovering the original sender of a forward.
	IntakeAddress string

	// TicketingDomain is the external ticketing system's own domain, also
	// excluded from sender extraction.
	TicketingDomain string

	// PersonalDomains lists personal webmail providers that never count as
	// client organizations.
	PersonalDomains map[string]bool

	// Destinations maps routing outcomes to collection identifiers in the
	// ticketing system.
	Destinations map[Destination]string
}

// DefaultPersonalDomains covers the common personal webmail providers.
func DefaultPersonalDomains() map[string]bool {
	return map[string]bool{
		"gmail.com":      true,
		"googlemail.com": true,
		"hotmail.com":    true,
		"outlook.com":    true,
		"live.com":       true,
		"msn.com":        true,
		"yahoo.com":      true,
		"icloud.com":     true,
		"me.com":         true,
		"aol.com":        true,
		"protonmail.com": true,
		"proton.me":      true,
	}
}

// NewRoutingPolicy builds a policy for the given internal domain with the
// default personal-provider exclusions.
func NewRoutingPolicy(internalDomain string) *RoutingPolicy {
	return &RoutingPolicy{
		InternalDomain:  strings.ToLower(internalDomain),
		PersonalDomains: DefaultPersonalDomains(),
		Destinations: map[Destination]string{
			DestinationInbox:    "Inbox",
			DestinationClients:  "Clients",
			DestinationExternal: "External",
		},
	}
}

// ShouldCreateClientLabel reports whether the domain is worth labeling as
// a distinct client: non-empty, not our own, not a personal provider.
func (p *RoutingPolicy) ShouldCreateClientLabel(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || domain == p.InternalDomain {
		return false
	}
	return !p.PersonalDomains[domain]
}

// CollectionFor resolves a destination to its collection identifier.
func (p *RoutingPolicy) CollectionFor(dest Destination) string {
	return p.Destinations[dest]
}
