// Package email derives structured sender and forwarding metadata from
// reformatted email text. The upstream reformatter frequently rewrites
// headers as rendered links, so extraction runs an ordered list of
// strategies and takes the first success.
package email

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/weapplyse/weapply-pm/core/domain"
)

// =============================================================================
// Patterns
// =============================================================================

var (
	// Subject prefixes: "Fwd:", "Fw:", "FW:".
	fwdSubjectRe = regexp.MustCompile(`(?i)^\s*(fwd?|fw)\s*:`)

	// Linked form: the reformatter renders "Name <addr>" as a clickable
	// mailto annotation, e.g. "[Pelle Persson](mailto:pelle@weapply.se)".
	linkedAddrRe = regexp.MustCompile(`\[([^\[\]]*)\]\(mailto:([^)\s]+)\)`)

	// Plain "From:" line with optional quoted display name and optional
	// angle-bracketed address.
	plainFromAngleRe = regexp.MustCompile(`(?im)^\s*\**from:?\**\s*"?([^"<\r\n]*?)"?\s*<([^<>\r\n]+)>`)
	plainFromBareRe  = regexp.MustCompile(`(?im)^\s*\**from:?\**\s*([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+)`)

	// Any email-looking token, used by the last-resort strategies.
	emailTokenRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Outlook-style forwarded header triple.
	fromSentToRe = regexp.MustCompile(`(?im)^\s*\**from:?\**.*\r?\n\s*\**sent:?\**.*\r?\n\s*\**to:?\**`)
)

// Literal markers that demarcate quoted/forwarded content. Matched
// case-insensitively against the body.
var forwardMarkers = []string{
	"---------- forwarded message",
	"begin forwarded message",
	"----- original message -----",
}

// =============================================================================
// Domain Helpers
// =============================================================================

// ExtractDomain returns the lower-cased domain part of an address. Trailing
// punctuation left over from bracket or parenthesis wrapping is stripped.
// Returns "" when the input has no usable domain.
func ExtractDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	d := strings.ToLower(email[at+1:])
	d = strings.TrimRightFunc(d, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if !strings.Contains(d, ".") {
		return d
	}
	return d
}

// cleanEmail trims rendering artifacts from a captured address token.
func cleanEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.Trim(email, `<>()[]"'`)
	email = strings.TrimRight(email, ".,;:")
	return email
}

// cleanName trims quoting and markdown emphasis from a display name.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'*_`)
	return strings.TrimSpace(name)
}

// =============================================================================
// Extraction Strategies
// =============================================================================

// senderCandidate is a possible sender identity found by one strategy.
type senderCandidate struct {
	Name  string
	Email string
}

// extractStrategy is one step in the ordered sender-extraction chain.
type extractStrategy struct {
	name    string
	extract func(content string) (senderCandidate, bool)
}

// Extractor derives EmailMetadata from reformatted email text. It never
// fails: missing information yields empty fields.
type Extractor struct {
	policy     *domain.RoutingPolicy
	strategies []extractStrategy
}

// NewExtractor creates an extractor bound to a routing policy. The policy
// supplies the internal domain and the addresses excluded from bare-token
// scans (intake mailbox, ticketing system domain).
func NewExtractor(policy *domain.RoutingPolicy) *Extractor {
	e := &Extractor{policy: policy}
	e.strategies = []extractStrategy{
		{name: "linked-from", extract: e.extractLinked},
		{name: "plain-from", extract: e.extractPlain},
		{name: "bare-token", extract: e.extractBareToken},
	}
	return e
}

// extractLinked finds the first mailto annotation. The top-level sender
// link always precedes quoted content, so first match wins.
func (e *Extractor) extractLinked(content string) (senderCandidate, bool) {
	m := linkedAddrRe.FindStringSubmatch(content)
	if m == nil {
		return senderCandidate{}, false
	}
	return senderCandidate{Name: cleanName(m[1]), Email: cleanEmail(m[2])}, true
}

// extractPlain parses a conventional "From:" header line.
func (e *Extractor) extractPlain(content string) (senderCandidate, bool) {
	if m := plainFromAngleRe.FindStringSubmatch(content); m != nil {
		return senderCandidate{Name: cleanName(m[1]), Email: cleanEmail(m[2])}, true
	}
	if m := plainFromBareRe.FindStringSubmatch(content); m != nil {
		return senderCandidate{Email: cleanEmail(m[1])}, true
	}
	return senderCandidate{}, false
}

// extractBareToken takes the first email-looking token anywhere in the
// content, skipping the ticketing system's own addresses.
func (e *Extractor) extractBareToken(content string) (senderCandidate, bool) {
	for _, tok := range emailTokenRe.FindAllString(content, -1) {
		addr := cleanEmail(tok)
		if e.isTicketingAddress(addr) {
			continue
		}
		return senderCandidate{Email: addr}, true
	}
	return senderCandidate{}, false
}

func (e *Extractor) isTicketingAddress(addr string) bool {
	if e.policy.TicketingDomain == "" {
		return false
	}
	return ExtractDomain(addr) == strings.ToLower(e.policy.TicketingDomain)
}

func (e *Extractor) isIntakeAddress(addr string) bool {
	return e.policy.IntakeAddress != "" && strings.EqualFold(addr, e.policy.IntakeAddress)
}

// =============================================================================
// Forward Detection
// =============================================================================

// forwardMarkerIndex returns the earliest offset of any forwarded-message
// marker, or -1 when the body carries none.
func forwardMarkerIndex(content string) int {
	idx := -1
	lower := strings.ToLower(content)
	for _, marker := range forwardMarkers {
		if i := strings.Index(lower, marker); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	if loc := fromSentToRe.FindStringIndex(content); loc != nil && (idx < 0 || loc[0] < idx) {
		idx = loc[0]
	}
	return idx
}

// originalSender recovers the author inside the forwarded block. It prefers
// the nested linked/plain forms after the marker; otherwise it falls back
// to the first email token that is neither the forwarder, the intake
// mailbox, nor a ticketing-system address. The fallback is intentionally
// permissive: on multi-recipient threads it can pick a CC'd party instead
// of the true author, a known precision limitation kept for parity.
func (e *Extractor) originalSender(content string, markerIdx int, forwarder string) string {
	if markerIdx >= 0 {
		tail := content[markerIdx:]
		for _, m := range linkedAddrRe.FindAllStringSubmatch(tail, -1) {
			addr := cleanEmail(m[2])
			if !strings.EqualFold(addr, forwarder) && !e.isTicketingAddress(addr) && !e.isIntakeAddress(addr) {
				return addr
			}
		}
		if c, ok := e.extractPlain(tail); ok && !strings.EqualFold(c.Email, forwarder) {
			return c.Email
		}
	}

	seen := make(map[string]bool)
	for _, tok := range emailTokenRe.FindAllString(content, -1) {
		addr := cleanEmail(tok)
		key := strings.ToLower(addr)
		if seen[key] {
			continue
		}
		seen[key] = true
		if strings.EqualFold(addr, forwarder) || e.isIntakeAddress(addr) || e.isTicketingAddress(addr) {
			continue
		}
		return addr
	}
	return ""
}

// =============================================================================
// Extraction
// =============================================================================

// Extract derives the metadata snapshot for one message. Idempotent: the
// same input always produces a structurally equal result.
func (e *Extractor) Extract(content, subject string) domain.EmailMetadata {
	var meta domain.EmailMetadata

	for _, s := range e.strategies {
		if c, ok := s.extract(content); ok {
			meta.SenderEmail = c.Email
			meta.SenderName = c.Name
			break
		}
	}
	meta.SenderDomain = ExtractDomain(meta.SenderEmail)

	markerIdx := forwardMarkerIndex(content)
	meta.IsForwarded = fwdSubjectRe.MatchString(subject) || markerIdx >= 0

	if meta.IsForwarded {
		// The top-level From in reformatted content is always the most
		// recent handler, never the original author.
		meta.ForwarderEmail = meta.SenderEmail
		meta.ForwarderDomain = meta.SenderDomain
		meta.OriginalSenderEmail = e.originalSender(content, markerIdx, meta.ForwarderEmail)
		meta.OriginalSenderDomain = ExtractDomain(meta.OriginalSenderEmail)
	}

	internal := e.policy.InternalDomain
	meta.IsInternal = meta.SenderDomain != "" && meta.SenderDomain == internal
	meta.IsInternalForward = meta.IsForwarded && meta.ForwarderDomain == internal
	meta.IsExternalDirect = !meta.IsForwarded && meta.SenderDomain != internal

	// Assignment / client derivation, first match wins.
	switch {
	case meta.IsInternal && !meta.IsForwarded:
		meta.AssignToEmail = meta.SenderEmail

	case meta.IsInternalForward:
		meta.AssignToEmail = meta.ForwarderEmail
		if meta.OriginalSenderDomain != "" {
			meta.ClientDomain = meta.OriginalSenderDomain
		} else {
			meta.ClientDomain = meta.SenderDomain
		}

	case meta.IsExternalDirect:
		meta.ClientDomain = meta.SenderDomain

	case meta.IsForwarded:
		// Forward handled by an external party: no assignment.
		if meta.OriginalSenderDomain != "" {
			meta.ClientDomain = meta.OriginalSenderDomain
		} else {
			meta.ClientDomain = meta.SenderDomain
		}
	}

	// Never label internal work as a client.
	if meta.ClientDomain == internal {
		meta.ClientDomain = ""
	}

	return meta
}
