package email

import (
	"reflect"
	"testing"

	"github.com/weapplyse/weapply-pm/core/domain"
)

func testPolicy() *domain.RoutingPolicy {
	p := domain.NewRoutingPolicy("weapply.se")
	p.IntakeAddress = "pm@weapply.se"
	p.TicketingDomain = "linear.app"
	return p
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"pelle@weapply.se", "weapply.se"},
		{"Pelle@WeApply.SE", "weapply.se"},
		{"user@acme.com)", "acme.com"},
		{"user@acme.com>.", "acme.com"},
		{"user@sub.acme.com]", "sub.acme.com"},
		{"", ""},
		{"no-at-sign", ""},
		{"trailing@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractDomain(tt.email); got != tt.want {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestExtractLinkedSenderDirect(t *testing.T) {
	e := NewExtractor(testPolicy())

	content := "From: [Pelle Persson](mailto:pelle@weapply.se)\n\n" +
		"Hi, can we update the careers page this week?"

	meta := e.Extract(content, "Careers page update")

	if meta.SenderEmail != "pelle@weapply.se" {
		t.Errorf("SenderEmail = %q, want pelle@weapply.se", meta.SenderEmail)
	}
	if meta.SenderName != "Pelle Persson" {
		t.Errorf("SenderName = %q, want Pelle Persson", meta.SenderName)
	}
	if !meta.IsInternal {
		t.Error("IsInternal = false, want true")
	}
	if meta.IsForwarded {
		t.Error("IsForwarded = true, want false")
	}
	if meta.AssignToEmail != "pelle@weapply.se" {
		t.Errorf("AssignToEmail = %q, want pelle@weapply.se", meta.AssignToEmail)
	}
	if meta.ClientDomain != "" {
		t.Errorf("ClientDomain = %q, want empty", meta.ClientDomain)
	}
}

func TestExtractInternalForward(t *testing.T) {
	e := NewExtractor(testPolicy())

	content := "From: [Pelle Persson](mailto:pelle@weapply.se)\n\n" +
		"Forwarding this client request, please handle.\n\n" +
		"---------- Forwarded message ---------\n" +
		"From: [Anna Andersson](mailto:client@acme.com)\n" +
		"Date: Mon, 12 Feb 2024\n" +
		"Subject: Offer question\n" +
		"To: [Pelle Persson](mailto:pelle@weapply.se)\n\n" +
		"Hi, we would like to discuss the offer."

	meta := e.Extract(content, "Fwd: Offer question")

	if !meta.IsForwarded {
		t.Fatal("IsForwarded = false, want true")
	}
	if meta.ForwarderEmail != "pelle@weapply.se" {
		t.Errorf("ForwarderEmail = %q, want pelle@weapply.se", meta.ForwarderEmail)
	}
	if meta.OriginalSenderEmail != "client@acme.com" {
		t.Errorf("OriginalSenderEmail = %q, want client@acme.com", meta.OriginalSenderEmail)
	}
	if !meta.IsInternalForward {
		t.Error("IsInternalForward = false, want true")
	}
	if meta.ClientDomain != "acme.com" {
		t.Errorf("ClientDomain = %q, want acme.com", meta.ClientDomain)
	}
	if meta.AssignToEmail != "pelle@weapply.se" {
		t.Errorf("AssignToEmail = %q, want pelle@weapply.se", meta.AssignToEmail)
	}
}

func TestExtractPlainFromLine(t *testing.T) {
	e := NewExtractor(testPolicy())

	tests := []struct {
		name      string
		content   string
		wantEmail string
		wantName  string
	}{
		{
			name:      "quoted display name with angle brackets",
			content:   "From: \"Jane Doe\" <jane@acme.com>\nTo: pm@weapply.se\n\nHello.",
			wantEmail: "jane@acme.com",
			wantName:  "Jane Doe",
		},
		{
			name:      "bare address after From",
			content:   "From: jane@acme.com\n\nHello there.",
			wantEmail: "jane@acme.com",
			wantName:  "",
		},
		{
			name:      "unquoted display name",
			content:   "From: Jane Doe <jane@acme.com>\n\nHello.",
			wantEmail: "jane@acme.com",
			wantName:  "Jane Doe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := e.Extract(tt.content, "Hello")
			if meta.SenderEmail != tt.wantEmail {
				t.Errorf("SenderEmail = %q, want %q", meta.SenderEmail, tt.wantEmail)
			}
			if meta.SenderName != tt.wantName {
				t.Errorf("SenderName = %q, want %q", meta.SenderName, tt.wantName)
			}
		})
	}
}

func TestExtractBareTokenFallback(t *testing.T) {
	e := NewExtractor(testPolicy())

	// No From line at all; ticketing-system tokens must be skipped.
	content := "Ticket sync notifications@linear.app says hi.\n" +
		"Please contact sales@bigcorp.io about the renewal."

	meta := e.Extract(content, "Renewal")

	if meta.SenderEmail != "sales@bigcorp.io" {
		t.Errorf("SenderEmail = %q, want sales@bigcorp.io", meta.SenderEmail)
	}
	if !meta.IsExternalDirect {
		t.Error("IsExternalDirect = false, want true")
	}
	if meta.ClientDomain != "bigcorp.io" {
		t.Errorf("ClientDomain = %q, want bigcorp.io", meta.ClientDomain)
	}
}

func TestExtractForwardDetection(t *testing.T) {
	e := NewExtractor(testPolicy())

	tests := []struct {
		name    string
		subject string
		content string
		want    bool
	}{
		{"fwd subject prefix", "Fwd: hello", "From: a@b.com\n\nhi", true},
		{"fw subject prefix", "FW: hello", "From: a@b.com\n\nhi", true},
		{"begin forwarded message", "hello", "From: a@b.com\n\nBegin forwarded message:\nFrom: c@d.com", true},
		{"original message marker", "hello", "From: a@b.com\n\n----- Original Message -----\nFrom: c@d.com", true},
		{"outlook from/sent/to triple", "hello", "note\n\nFrom: c@d.com\nSent: Monday\nTo: a@b.com\n\nbody", true},
		{"no markers", "hello", "From: a@b.com\n\njust a note", false},
		{"forward mentioned mid-sentence", "status", "From: a@b.com\n\nI will forward the doc later.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := e.Extract(tt.content, tt.subject)
			if meta.IsForwarded != tt.want {
				t.Errorf("IsForwarded = %v, want %v", meta.IsForwarded, tt.want)
			}
		})
	}
}

func TestExtractOriginalSenderTokenFallback(t *testing.T) {
	e := NewExtractor(testPolicy())

	// Forward marker present but no parseable nested From form: the first
	// token that is not the forwarder, intake mailbox, or ticketing-system
	// address wins.
	content := "From: [Pelle Persson](mailto:pelle@weapply.se)\n\n" +
		"---------- Forwarded message ---------\n" +
		"somebody wrote: contact us via pm@weapply.se or buyer@initech.com soon"

	meta := e.Extract(content, "Fwd: question")

	if meta.OriginalSenderEmail != "buyer@initech.com" {
		t.Errorf("OriginalSenderEmail = %q, want buyer@initech.com", meta.OriginalSenderEmail)
	}
	if meta.ClientDomain != "initech.com" {
		t.Errorf("ClientDomain = %q, want initech.com", meta.ClientDomain)
	}
}

func TestExtractEmptyAndMalformedInput(t *testing.T) {
	e := NewExtractor(testPolicy())

	for _, content := range []string{"", "   ", "no addresses here at all"} {
		meta := e.Extract(content, "")
		if meta.SenderEmail != "" || meta.SenderDomain != "" {
			t.Errorf("content %q: sender = %q/%q, want empty", content, meta.SenderEmail, meta.SenderDomain)
		}
		if meta.IsInternal {
			t.Errorf("content %q: IsInternal = true, want false", content)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	e := NewExtractor(testPolicy())

	content := "From: [Pelle Persson](mailto:pelle@weapply.se)\n\n" +
		"---------- Forwarded message ---------\n" +
		"From: [Anna Andersson](mailto:client@acme.com)\n\nbody"

	first := e.Extract(content, "Fwd: Offer")
	second := e.Extract(content, "Fwd: Offer")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not idempotent:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}
