package routing

import (
	"testing"

	"github.com/weapplyse/weapply-pm/core/domain"
)

func TestResolveDecisionTable(t *testing.T) {
	r := NewResolver(domain.NewRoutingPolicy("weapply.se"))

	tests := []struct {
		name           string
		meta           domain.EmailMetadata
		hasClientLabel bool
		want           domain.Destination
	}{
		{
			name: "internal direct goes to inbox",
			meta: domain.EmailMetadata{IsInternal: true},
			want: domain.DestinationInbox,
		},
		{
			name:           "internal direct ignores client label",
			meta:           domain.EmailMetadata{IsInternal: true},
			hasClientLabel: true,
			want:           domain.DestinationInbox,
		},
		{
			name:           "internal forward with client label",
			meta:           domain.EmailMetadata{IsForwarded: true, IsInternalForward: true},
			hasClientLabel: true,
			want:           domain.DestinationClients,
		},
		{
			name: "internal forward without client label",
			meta: domain.EmailMetadata{IsForwarded: true, IsInternalForward: true},
			want: domain.DestinationExternal,
		},
		{
			name:           "external direct with client label",
			meta:           domain.EmailMetadata{IsExternalDirect: true},
			hasClientLabel: true,
			want:           domain.DestinationClients,
		},
		{
			name: "external direct without client label",
			meta: domain.EmailMetadata{IsExternalDirect: true},
			want: domain.DestinationExternal,
		},
		{
			name: "unclassifiable falls back to inbox",
			meta: domain.EmailMetadata{IsForwarded: true},
			want: domain.DestinationInbox,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(&tt.meta, tt.hasClientLabel); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSourceLabelPrecedence(t *testing.T) {
	r := NewResolver(domain.NewRoutingPolicy("weapply.se"))

	tests := []struct {
		name string
		meta domain.EmailMetadata
		want string
	}{
		{
			name: "internal forward wins over forwarded",
			meta: domain.EmailMetadata{IsForwarded: true, IsInternalForward: true},
			want: domain.LabelInternalForward,
		},
		{
			name: "external direct",
			meta: domain.EmailMetadata{IsExternalDirect: true},
			want: domain.LabelExternalDirect,
		},
		{
			name: "generic forward",
			meta: domain.EmailMetadata{IsForwarded: true},
			want: domain.LabelForwarded,
		},
		{
			name: "plain email default",
			meta: domain.EmailMetadata{IsInternal: true},
			want: domain.LabelEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.SourceLabel(&tt.meta); got != tt.want {
				t.Errorf("SourceLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShouldCreateClientLabel(t *testing.T) {
	p := domain.NewRoutingPolicy("weapply.se")

	tests := []struct {
		domain string
		want   bool
	}{
		{"weapply.se", false},
		{"gmail.com", false},
		{"hotmail.com", false},
		{"acme.com", true},
		{"", false},
		{"WeApply.SE", false},
		{"Acme.COM", true},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			if got := p.ShouldCreateClientLabel(tt.domain); got != tt.want {
				t.Errorf("ShouldCreateClientLabel(%q) = %v, want %v", tt.domain, got, tt.want)
			}
		})
	}
}
