// Package client is a Go SDK for the quest-ledger HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// Client is a Go SDK for quest-ledger API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new quest-ledger client. token is the caller's
// principal token and may be empty for read-only use.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a rejection returned by the server
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.Status, e.Code, e.Message)
}

// Platform

// Initialize configures the platform once
func (c *Client) Initialize(ctx context.Context, req models.InitializeRequest) (*models.PlatformConfig, error) {
	var cfg models.PlatformConfig
	if err := c.do(ctx, http.MethodPost, "/api/v1/platform/initialize", req, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Platform returns the platform configuration
func (c *Client) Platform(ctx context.Context) (*models.PlatformConfig, error) {
	var cfg models.PlatformConfig
	if err := c.do(ctx, http.MethodGet, "/api/v1/platform", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Quests

// CreateQuest creates a quest owned by the token's principal
func (c *Client) CreateQuest(ctx context.Context, req models.CreateQuestRequest) (*models.Quest, error) {
	var quest models.Quest
	if err := c.do(ctx, http.MethodPost, "/api/v1/quests", req, &quest); err != nil {
		return nil, err
	}
	return &quest, nil
}

// GetQuest retrieves a quest by ID
func (c *Client) GetQuest(ctx context.Context, id models.Symbol) (*models.Quest, error) {
	var quest models.Quest
	if err := c.do(ctx, http.MethodGet, "/api/v1/quests/"+url.PathEscape(string(id)), nil, &quest); err != nil {
		return nil, err
	}
	return &quest, nil
}

// ListQuests lists quests, optionally filtered by status
func (c *Client) ListQuests(ctx context.Context, status models.QuestStatus) (*models.QuestListResponse, error) {
	path := "/api/v1/quests"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}

	var list models.QuestListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CancelQuest cancels a quest; the token must belong to the platform admin
func (c *Client) CancelQuest(ctx context.Context, id models.Symbol) (*models.Quest, error) {
	var quest models.Quest
	if err := c.do(ctx, http.MethodPost, "/api/v1/quests/"+url.PathEscape(string(id))+"/cancel", nil, &quest); err != nil {
		return nil, err
	}
	return &quest, nil
}

// CompleteQuest records a completion for the token's principal
func (c *Client) CompleteQuest(ctx context.Context, id models.Symbol) (*models.CompletionRecord, error) {
	var record models.CompletionRecord
	if err := c.do(ctx, http.MethodPost, "/api/v1/quests/"+url.PathEscape(string(id))+"/complete", nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// HasCompleted reports whether user completed the quest
func (c *Client) HasCompleted(ctx context.Context, id models.Symbol, user models.Principal) (bool, error) {
	var status models.CompletionStatusResponse
	path := fmt.Sprintf("/api/v1/quests/%s/completions/%s", url.PathEscape(string(id)), url.PathEscape(string(user)))
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return false, err
	}
	return status.Completed, nil
}

// UserCompletions lists quests completed by user
func (c *Client) UserCompletions(ctx context.Context, user models.Principal) ([]models.Symbol, error) {
	var ids []models.Symbol
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(string(user))+"/completions", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Leaderboard returns the top limit users by completions
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/api/v1/leaderboard?limit="+strconv.Itoa(limit), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Badges

// MintBadge mints a badge; the token must belong to the orchestrator
func (c *Client) MintBadge(ctx context.Context, req models.MintBadgeRequest) (*models.Badge, error) {
	var badge models.Badge
	if err := c.do(ctx, http.MethodPost, "/api/v1/badges", req, &badge); err != nil {
		return nil, err
	}
	return &badge, nil
}

// GetBadge retrieves a badge by ID
func (c *Client) GetBadge(ctx context.Context, id models.Symbol) (*models.Badge, error) {
	var badge models.Badge
	if err := c.do(ctx, http.MethodGet, "/api/v1/badges/"+url.PathEscape(string(id)), nil, &badge); err != nil {
		return nil, err
	}
	return &badge, nil
}

// TransferBadge moves a badge from the token's principal to `to`
func (c *Client) TransferBadge(ctx context.Context, id models.Symbol, to models.Principal) (*models.Badge, error) {
	var badge models.Badge
	req := models.TransferBadgeRequest{To: to}
	if err := c.do(ctx, http.MethodPost, "/api/v1/badges/"+url.PathEscape(string(id))+"/transfer", req, &badge); err != nil {
		return nil, err
	}
	return &badge, nil
}

// UserBadges lists badges held by user
func (c *Client) UserBadges(ctx context.Context, user models.Principal) ([]models.Symbol, error) {
	var ids []models.Symbol
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(string(user))+"/badges", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// OwnerOf returns the current owner of a badge
func (c *Client) OwnerOf(ctx context.Context, id models.Symbol) (models.Principal, error) {
	var out struct {
		Owner models.Principal `json:"owner"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/badges/"+url.PathEscape(string(id))+"/owner", nil, &out); err != nil {
		return "", err
	}
	return out.Owner, nil
}

// TotalBadges returns the number of badges ever minted
func (c *Client) TotalBadges(ctx context.Context) (int64, error) {
	var out struct {
		Total int64 `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/badges", nil, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

// Payouts

// PendingPayouts lists queued payouts, oldest first
func (c *Client) PendingPayouts(ctx context.Context, limit int) ([]models.Payout, error) {
	var payouts []models.Payout
	if err := c.do(ctx, http.MethodGet, "/api/v1/payouts?limit="+strconv.Itoa(limit), nil, &payouts); err != nil {
		return nil, err
	}
	return payouts, nil
}

// AckPayout removes the head payout once it was paid; the token must belong
// to the orchestrator
func (c *Client) AckPayout(ctx context.Context, p models.Payout) error {
	return c.do(ctx, http.MethodPost, "/api/v1/payouts/ack", p, nil)
}

// Events

// EventHistory returns committed events with a sequence greater than after
func (c *Client) EventHistory(ctx context.Context, after uint64, limit int) ([]models.Event, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatUint(after, 10))
	q.Set("limit", strconv.Itoa(limit))

	var evts []models.Event
	if err := c.do(ctx, http.MethodGet, "/api/v1/events/history?"+q.Encode(), nil, &evts); err != nil {
		return nil, err
	}
	return evts, nil
}

// Ready checks if the service and its dependencies are ready
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ready", nil, nil)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do performs an HTTP request and decodes the envelope data into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result envelope
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("HTTP %d: failed to unmarshal response: %w", resp.StatusCode, err)
	}

	if !result.Success || resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
		}
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}
