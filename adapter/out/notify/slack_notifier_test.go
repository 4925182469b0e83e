package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/port/out"
)

func TestNotifySkipsNonUrgent(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	for _, p := range []domain.Priority{domain.PriorityHigh, domain.PriorityNormal, domain.PriorityLow} {
		if err := n.Notify(context.Background(), &out.Alert{Priority: p}); err != nil {
			t.Fatalf("Notify(%v): %v", p, err)
		}
	}
	if called {
		t.Error("non-urgent alert reached the webhook")
	}
}

func TestNotifyPostsUrgent(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.Notify(context.Background(), &out.Alert{
		Identifier:  "PM-9",
		Title:       "Production down",
		Summary:     "Client reports a full outage.",
		Priority:    domain.PriorityUrgent,
		Sender:      "anna@acme.com",
		ClientLabel: "acme.com",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	for _, want := range []string{"PM-9", "Production down", "anna@acme.com", "acme.com"} {
		if !strings.Contains(body, want) {
			t.Errorf("payload missing %q: %s", want, body)
		}
	}
}

func TestNotifySurfacesWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no_service", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.Notify(context.Background(), &out.Alert{Priority: domain.PriorityUrgent, Title: "X"})
	if err == nil {
		t.Fatal("expected error on webhook failure")
	}
}
