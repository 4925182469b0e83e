package domain

// InboundEmail is the raw triage input as delivered by the upstream
// mail-to-text reformatter. Subject arrives separately from the body;
// MessageID is optional and only present when the reformatter kept it.
type InboundEmail struct {
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	MessageID string `json:"message_id,omitempty"`
}

// EmailMetadata is the immutable per-message snapshot derived from the
// inbound text. Absent information is an empty string, never a nil fault.
type EmailMetadata struct {
	SenderEmail  string `json:"sender_email"`
	SenderName   string `json:"sender_name,omitempty"`
	SenderDomain string `json:"sender_domain"`

	// Forwarding structure. When forwarded, the top-level sender is by
	// construction the forwarder; the original author has to be recovered
	// from inside the forwarded block.
	IsForwarded          bool   `json:"is_forwarded"`
	ForwarderEmail       string `json:"forwarder_email,omitempty"`
	ForwarderDomain      string `json:"forwarder_domain,omitempty"`
	OriginalSenderEmail  string `json:"original_sender_email,omitempty"`
	OriginalSenderDomain string `json:"original_sender_domain,omitempty"`

	// Classification flags. Mutually exclusive in the routing decision
	// tree, not in storage.
	IsInternal        bool `json:"is_internal"`
	IsInternalForward bool `json:"is_internal_forward"`
	IsExternalDirect  bool `json:"is_external_direct"`

	AssignToEmail string `json:"assign_to_email,omitempty"`
	ClientDomain  string `json:"client_domain,omitempty"`
}
