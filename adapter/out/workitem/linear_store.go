// Package workitem implements the work-item store port against the Linear
// GraphQL API. All calls go through a shared circuit breaker so a broken
// API fails fast instead of piling up timeouts.
package workitem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/weapplyse/weapply-pm/core/port/out"
	"github.com/weapplyse/weapply-pm/pkg/apperr"
	"github.com/weapplyse/weapply-pm/pkg/httputil"
	"github.com/weapplyse/weapply-pm/pkg/logger"
)

// DefaultEndpoint is the Linear GraphQL endpoint.
const DefaultEndpoint = "https://api.linear.app/graphql"

// Config for the Linear store.
type Config struct {
	APIKey   string
	Endpoint string
	TeamID   string
}

// LinearStore talks to the Linear GraphQL API.
type LinearStore struct {
	apiKey   string
	endpoint string
	teamID   string

	client *http.Client
	cb     *gobreaker.CircuitBreaker
	log    *logger.Logger

	mu       sync.RWMutex
	labelIDs map[string]string
	userIDs  map[string]string
	teamIDs  map[string]string
}

var _ out.WorkItemStore = (*LinearStore)(nil)

// NewLinearStore creates the store.
func NewLinearStore(cfg Config) *LinearStore {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	cbSettings := gobreaker.Settings{
		Name:        "linear-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &LinearStore{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		teamID:   cfg.TeamID,
		client:   httputil.TicketingClient(),
		cb:       gobreaker.NewCircuitBreaker(cbSettings),
		log:      logger.WithField("adapter", "linear"),
		labelIDs: make(map[string]string),
		userIDs:  make(map[string]string),
		teamIDs:  make(map[string]string),
	}
}

// =============================================================================
// GraphQL transport
// =============================================================================

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

func (s *LinearStore) execute(ctx context.Context, query string, variables map[string]any, result any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}

	raw, err := s.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", s.apiKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("linear returned %d: %s", resp.StatusCode, truncate(string(data), 200))
		}
		return data, nil
	})
	if err != nil {
		return apperr.ExternalError("linear", err)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(raw.([]byte), &envelope); err != nil {
		return apperr.ExternalError("linear", err)
	}
	if len(envelope.Errors) > 0 {
		return apperr.ExternalError("linear", fmt.Errorf("graphql: %s", envelope.Errors[0].Message))
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return apperr.ExternalError("linear", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// =============================================================================
// Issues
// =============================================================================

type issuePayload struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Desc       string `json:"description"`
}

func (p *issuePayload) toWorkItem() *out.WorkItem {
	return &out.WorkItem{
		ID:          p.ID,
		DisplayID:   p.Identifier,
		Title:       p.Title,
		Description: p.Desc,
	}
}

// GetIssue fetches one issue by id.
func (s *LinearStore) GetIssue(ctx context.Context, id string) (*out.WorkItem, error) {
	const query = `query Issue($id: String!) {
		issue(id: $id) { id identifier title description }
	}`

	var result struct {
		Issue *issuePayload `json:"issue"`
	}
	if err := s.execute(ctx, query, map[string]any{"id": id}, &result); err != nil {
		return nil, err
	}
	if result.Issue == nil {
		return nil, apperr.NotFound("issue")
	}
	return result.Issue.toWorkItem(), nil
}

// CreateIssue creates an issue from the draft. Label names and the
// assignee email are resolved to ids first; resolution failures degrade
// to an unlabeled, unassigned issue rather than failing the create.
func (s *LinearStore) CreateIssue(ctx context.Context, draft *out.WorkItemDraft) (*out.WorkItem, error) {
	teamID := draft.TeamID
	if teamID == "" {
		teamID = s.teamID
	}

	input := map[string]any{
		"teamId":   teamID,
		"title":    draft.Title,
		"priority": int(draft.Priority),
	}
	if draft.Description != "" {
		input["description"] = draft.Description
	}

	if labelIDs := s.resolveLabels(ctx, draft.Labels); len(labelIDs) > 0 {
		input["labelIds"] = labelIDs
	}
	if draft.AssigneeEmail != "" {
		if userID, err := s.ResolveUserID(ctx, draft.AssigneeEmail); err == nil && userID != "" {
			input["assigneeId"] = userID
		} else if err != nil {
			s.log.WithError(err).Warn("could not resolve assignee %s", draft.AssigneeEmail)
		}
	}

	const mutation = `mutation IssueCreate($input: IssueCreateInput!) {
		issueCreate(input: $input) {
			success
			issue { id identifier title description }
		}
	}`

	var result struct {
		IssueCreate struct {
			Success bool          `json:"success"`
			Issue   *issuePayload `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := s.execute(ctx, mutation, map[string]any{"input": input}, &result); err != nil {
		return nil, err
	}
	if !result.IssueCreate.Success || result.IssueCreate.Issue == nil {
		return nil, apperr.ExternalError("linear", fmt.Errorf("issue create rejected"))
	}
	return result.IssueCreate.Issue.toWorkItem(), nil
}

// UpdateIssue applies a partial update.
func (s *LinearStore) UpdateIssue(ctx context.Context, id string, patch *out.WorkItemPatch) error {
	input := map[string]any{}
	if patch.Title != nil {
		input["title"] = *patch.Title
	}
	if patch.Description != nil {
		input["description"] = *patch.Description
	}
	if patch.LabelIDs != nil {
		input["labelIds"] = patch.LabelIDs
	}
	if patch.Priority != nil {
		input["priority"] = int(*patch.Priority)
	}
	if patch.AssigneeID != nil {
		input["assigneeId"] = *patch.AssigneeID
	}
	if patch.State != nil {
		input["stateId"] = *patch.State
	}
	if len(input) == 0 {
		return nil
	}

	const mutation = `mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
		issueUpdate(id: $id, input: $input) { success }
	}`

	var result struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	if err := s.execute(ctx, mutation, map[string]any{"id": id, "input": input}, &result); err != nil {
		return err
	}
	if !result.IssueUpdate.Success {
		return apperr.ExternalError("linear", fmt.Errorf("issue update rejected"))
	}
	return nil
}

// CreateSubIssue creates a child issue under the given parent.
func (s *LinearStore) CreateSubIssue(ctx context.Context, parentID, title, description string, labels []string) (string, error) {
	input := map[string]any{
		"teamId":   s.teamID,
		"parentId": parentID,
		"title":    title,
	}
	if description != "" {
		input["description"] = description
	}
	if labelIDs := s.resolveLabels(ctx, labels); len(labelIDs) > 0 {
		input["labelIds"] = labelIDs
	}

	const mutation = `mutation IssueCreate($input: IssueCreateInput!) {
		issueCreate(input: $input) {
			success
			issue { id identifier title description }
		}
	}`

	var result struct {
		IssueCreate struct {
			Success bool          `json:"success"`
			Issue   *issuePayload `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := s.execute(ctx, mutation, map[string]any{"input": input}, &result); err != nil {
		return "", err
	}
	if !result.IssueCreate.Success || result.IssueCreate.Issue == nil {
		return "", apperr.ExternalError("linear", fmt.Errorf("sub-issue create rejected"))
	}
	return result.IssueCreate.Issue.ID, nil
}

// =============================================================================
// Collections (Linear projects)
// =============================================================================

// AddToCollection files an issue into a project.
func (s *LinearStore) AddToCollection(ctx context.Context, id, collectionID string) error {
	const mutation = `mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
		issueUpdate(id: $id, input: $input) { success }
	}`

	var result struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	vars := map[string]any{"id": id, "input": map[string]any{"projectId": collectionID}}
	if err := s.execute(ctx, mutation, vars, &result); err != nil {
		return err
	}
	if !result.IssueUpdate.Success {
		return apperr.ExternalError("linear", fmt.Errorf("project assignment rejected"))
	}
	return nil
}

// RemoveFromCollection detaches an issue from its project.
func (s *LinearStore) RemoveFromCollection(ctx context.Context, id string) error {
	const mutation = `mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
		issueUpdate(id: $id, input: $input) { success }
	}`

	var result struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	vars := map[string]any{"id": id, "input": map[string]any{"projectId": nil}}
	if err := s.execute(ctx, mutation, vars, &result); err != nil {
		return err
	}
	if !result.IssueUpdate.Success {
		return apperr.ExternalError("linear", fmt.Errorf("project removal rejected"))
	}
	return nil
}

// =============================================================================
// Name -> ID resolution with caches
// =============================================================================

// resolveLabels maps label names to ids, dropping the ones that fail.
func (s *LinearStore) resolveLabels(ctx context.Context, names []string) []string {
	var ids []string
	for _, name := range names {
		id, err := s.ResolveLabelID(ctx, name)
		if err != nil {
			s.log.WithError(err).Warn("could not resolve label %q", name)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ResolveLabelID finds the id for a label name, creating the label when it
// does not exist yet. Results are cached for the process lifetime.
func (s *LinearStore) ResolveLabelID(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)
	s.mu.RLock()
	if id, ok := s.labelIDs[key]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	const query = `query Labels($name: String!) {
		issueLabels(filter: { name: { eqIgnoreCase: $name } }) {
			nodes { id name }
		}
	}`

	var result struct {
		IssueLabels struct {
			Nodes []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"issueLabels"`
	}
	if err := s.execute(ctx, query, map[string]any{"name": name}, &result); err != nil {
		return "", err
	}

	var id string
	if len(result.IssueLabels.Nodes) > 0 {
		id = result.IssueLabels.Nodes[0].ID
	} else {
		created, err := s.createLabel(ctx, name)
		if err != nil {
			return "", err
		}
		id = created
	}

	s.mu.Lock()
	s.labelIDs[key] = id
	s.mu.Unlock()
	return id, nil
}

func (s *LinearStore) createLabel(ctx context.Context, name string) (string, error) {
	const mutation = `mutation LabelCreate($input: IssueLabelCreateInput!) {
		issueLabelCreate(input: $input) {
			success
			issueLabel { id }
		}
	}`

	var result struct {
		IssueLabelCreate struct {
			Success    bool `json:"success"`
			IssueLabel *struct {
				ID string `json:"id"`
			} `json:"issueLabel"`
		} `json:"issueLabelCreate"`
	}
	vars := map[string]any{"input": map[string]any{"name": name, "teamId": s.teamID}}
	if err := s.execute(ctx, mutation, vars, &result); err != nil {
		return "", err
	}
	if !result.IssueLabelCreate.Success || result.IssueLabelCreate.IssueLabel == nil {
		return "", apperr.ExternalError("linear", fmt.Errorf("label create rejected for %q", name))
	}
	return result.IssueLabelCreate.IssueLabel.ID, nil
}

// ResolveUserID finds the workspace user with the given email.
func (s *LinearStore) ResolveUserID(ctx context.Context, email string) (string, error) {
	key := strings.ToLower(email)
	s.mu.RLock()
	if id, ok := s.userIDs[key]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	const query = `query Users($email: String!) {
		users(filter: { email: { eq: $email } }) {
			nodes { id email }
		}
	}`

	var result struct {
		Users struct {
			Nodes []struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"nodes"`
		} `json:"users"`
	}
	if err := s.execute(ctx, query, map[string]any{"email": email}, &result); err != nil {
		return "", err
	}
	if len(result.Users.Nodes) == 0 {
		return "", apperr.NotFound("user")
	}

	id := result.Users.Nodes[0].ID
	s.mu.Lock()
	s.userIDs[key] = id
	s.mu.Unlock()
	return id, nil
}

// ResolveTeamID finds the team with the given name or key.
func (s *LinearStore) ResolveTeamID(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)
	s.mu.RLock()
	if id, ok := s.teamIDs[key]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	const query = `query Teams { teams { nodes { id name key } } }`

	var result struct {
		Teams struct {
			Nodes []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				Key  string `json:"key"`
			} `json:"nodes"`
		} `json:"teams"`
	}
	if err := s.execute(ctx, query, nil, &result); err != nil {
		return "", err
	}
	for _, team := range result.Teams.Nodes {
		if strings.EqualFold(team.Name, name) || strings.EqualFold(team.Key, name) {
			s.mu.Lock()
			s.teamIDs[key] = team.ID
			s.mu.Unlock()
			return team.ID, nil
		}
	}
	return "", apperr.NotFound("team")
}
