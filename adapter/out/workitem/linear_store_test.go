package workitem

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/port/out"
)

// fakeLinear replays canned GraphQL responses keyed by operation name.
func fakeLinear(t *testing.T, responses map[string]string, requests *[]graphqlRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if requests != nil {
			*requests = append(*requests, req)
		}
		for op, resp := range responses {
			if strings.Contains(req.Query, op) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(resp))
				return
			}
		}
		t.Errorf("unexpected query: %s", req.Query)
	}))
}

func TestCreateIssue(t *testing.T) {
	var requests []graphqlRequest
	srv := fakeLinear(t, map[string]string{
		"issueLabels": `{"data":{"issueLabels":{"nodes":[{"id":"lbl-1","name":"billing"}]}}}`,
		"issueCreate": `{"data":{"issueCreate":{"success":true,"issue":{"id":"i-1","identifier":"PM-7","title":"T"}}}}`,
	}, &requests)
	defer srv.Close()

	store := NewLinearStore(Config{APIKey: "key", Endpoint: srv.URL, TeamID: "team-1"})

	item, err := store.CreateIssue(context.Background(), &out.WorkItemDraft{
		Title:    "T",
		Labels:   []string{"billing"},
		Priority: domain.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if item.ID != "i-1" || item.DisplayID != "PM-7" {
		t.Errorf("item = %+v", item)
	}

	// The create mutation must carry the resolved label id, the configured
	// team and the numeric priority.
	var create graphqlRequest
	for _, r := range requests {
		if strings.Contains(r.Query, "issueCreate") {
			create = r
		}
	}
	input, ok := create.Variables["input"].(map[string]any)
	if !ok {
		t.Fatalf("create variables = %v", create.Variables)
	}
	if input["teamId"] != "team-1" {
		t.Errorf("teamId = %v", input["teamId"])
	}
	if p, _ := input["priority"].(float64); int(p) != 2 {
		t.Errorf("priority = %v, want 2", input["priority"])
	}
	labels, _ := input["labelIds"].([]any)
	if len(labels) != 1 || labels[0] != "lbl-1" {
		t.Errorf("labelIds = %v", input["labelIds"])
	}
}

func TestResolveLabelIDCreatesMissingLabel(t *testing.T) {
	srv := fakeLinear(t, map[string]string{
		"issueLabels":      `{"data":{"issueLabels":{"nodes":[]}}}`,
		"issueLabelCreate": `{"data":{"issueLabelCreate":{"success":true,"issueLabel":{"id":"lbl-new"}}}}`,
	}, nil)
	defer srv.Close()

	store := NewLinearStore(Config{APIKey: "key", Endpoint: srv.URL, TeamID: "team-1"})

	id, err := store.ResolveLabelID(context.Background(), "acme.com")
	if err != nil {
		t.Fatalf("ResolveLabelID: %v", err)
	}
	if id != "lbl-new" {
		t.Errorf("id = %q, want lbl-new", id)
	}
}

func TestResolveLabelIDCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"data":{"issueLabels":{"nodes":[{"id":"lbl-1","name":"email"}]}}}`))
	}))
	defer srv.Close()

	store := NewLinearStore(Config{APIKey: "key", Endpoint: srv.URL})

	for i := 0; i < 3; i++ {
		if _, err := store.ResolveLabelID(context.Background(), "Email"); err != nil {
			t.Fatalf("ResolveLabelID: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("API calls = %d, want 1 (cached, case-insensitive)", calls)
	}
}

func TestGraphQLErrorSurfaces(t *testing.T) {
	srv := fakeLinear(t, map[string]string{
		"issue(": `{"data":null,"errors":[{"message":"not authorized"}]}`,
	}, nil)
	defer srv.Close()

	store := NewLinearStore(Config{APIKey: "key", Endpoint: srv.URL})

	if _, err := store.GetIssue(context.Background(), "i-1"); err == nil {
		t.Fatal("expected graphql error to surface")
	}
}

func TestAddToCollection(t *testing.T) {
	var requests []graphqlRequest
	srv := fakeLinear(t, map[string]string{
		"issueUpdate": `{"data":{"issueUpdate":{"success":true}}}`,
	}, &requests)
	defer srv.Close()

	store := NewLinearStore(Config{APIKey: "key", Endpoint: srv.URL})

	if err := store.AddToCollection(context.Background(), "i-1", "proj-9"); err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}
	input, _ := requests[0].Variables["input"].(map[string]any)
	if input["projectId"] != "proj-9" {
		t.Errorf("projectId = %v", input["projectId"])
	}
}
