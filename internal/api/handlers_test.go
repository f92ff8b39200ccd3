package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/terra-clan/quest-ledger/internal/auth"
	"github.com/terra-clan/quest-ledger/internal/config"
	"github.com/terra-clan/quest-ledger/internal/events"
	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
	"github.com/terra-clan/quest-ledger/internal/storage"
)

type testEnv struct {
	server   *httptest.Server
	issuer   *auth.Issuer
	recorder *events.Recorder

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		recorder: events.NewRecorder(),
		now:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	env.issuer = issuer

	host := ledger.NewHost(storage.NewMemoryStore(),
		ledger.WithSink(env.recorder),
		ledger.WithClock(env.clock),
	)
	srv := NewServer(config.ServerConfig{Port: 8080}, ledger.New(host), issuer, nil, nil, env.recorder)
	env.server = httptest.NewServer(srv.Router())
	t.Cleanup(env.server.Close)

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, as models.Principal, body interface{}) (int, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		token, err := e.issuer.Issue(as)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func (e *testEnv) initialize(t *testing.T) {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/api/v1/platform/initialize", "", models.InitializeRequest{
		Admin:        "GADMIN",
		RewardToken:  "CREWARD",
		Orchestrator: "GORCH",
	})
	if status != http.StatusCreated {
		t.Fatalf("initialize: expected 201, got %d", status)
	}
}

func (e *testEnv) createQuest(t *testing.T, req models.CreateQuestRequest) {
	t.Helper()
	status, resp := e.do(t, http.MethodPost, "/api/v1/quests", "GADMIN", req)
	if status != http.StatusCreated {
		t.Fatalf("create quest: expected 201, got %d (%+v)", status, resp.Error)
	}
}

func errorCode(resp apiResponse) string {
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("expected healthy, got %d", status)
	}

	status, _ = env.do(t, http.MethodGet, "/ready", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected ready, got %d", status)
	}
}

func TestInitializeTwice(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	status, resp := env.do(t, http.MethodPost, "/api/v1/platform/initialize", "", models.InitializeRequest{
		Admin: "GOTHER", RewardToken: "COTHER", Orchestrator: "GOTHER",
	})
	if status != http.StatusConflict || errorCode(resp) != "already_initialized" {
		t.Fatalf("expected 409 already_initialized, got %d %s", status, errorCode(resp))
	}
}

func TestCreateQuestBeforeInitialize(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.do(t, http.MethodPost, "/api/v1/quests", "GADMIN", models.CreateQuestRequest{
		ID: "Q1", Title: "First",
	})
	if status != http.StatusPreconditionFailed || errorCode(resp) != "uninitialized" {
		t.Fatalf("expected 412 uninitialized, got %d %s", status, errorCode(resp))
	}
}

func TestMutationsRequireToken(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	status, resp := env.do(t, http.MethodPost, "/api/v1/quests", "", models.CreateQuestRequest{ID: "Q1"})
	if status != http.StatusUnauthorized || errorCode(resp) != "not_authenticated" {
		t.Fatalf("expected 401 not_authenticated, got %d %s", status, errorCode(resp))
	}

	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/quests/Q1/complete", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	httpResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", httpResp.StatusCode)
	}
}

func TestQuestLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	limit := int64(1)
	env.createQuest(t, models.CreateQuestRequest{ID: "Q1", Title: "First", RewardAmount: 100, MaxCompletions: &limit})

	status, resp := env.do(t, http.MethodPost, "/api/v1/quests", "GADMIN", models.CreateQuestRequest{ID: "Q1", Title: "Again"})
	if status != http.StatusConflict || errorCode(resp) != "already_exists" {
		t.Fatalf("expected 409 already_exists, got %d %s", status, errorCode(resp))
	}

	status, resp = env.do(t, http.MethodPost, "/api/v1/quests/Q1/complete", "GALICE", nil)
	if status != http.StatusCreated {
		t.Fatalf("complete: expected 201, got %d (%+v)", status, resp.Error)
	}

	status, resp = env.do(t, http.MethodPost, "/api/v1/quests/Q1/complete", "GBOB", nil)
	if status != http.StatusConflict || errorCode(resp) != "cap_reached" {
		t.Fatalf("expected 409 cap_reached after cap, got %d %s", status, errorCode(resp))
	}

	status, resp = env.do(t, http.MethodGet, "/api/v1/quests/Q1/completions/GALICE", "", nil)
	if status != http.StatusOK {
		t.Fatalf("has completed: expected 200, got %d", status)
	}
	data := resp.Data.(map[string]interface{})
	if data["completed"] != true {
		t.Fatalf("expected completed, got %v", data)
	}

	status, resp = env.do(t, http.MethodGet, "/api/v1/quests/Q1", "", nil)
	if status != http.StatusOK {
		t.Fatalf("get quest: expected 200, got %d", status)
	}
	quest := resp.Data.(map[string]interface{})
	if quest["status"] != string(models.QuestCompleted) || quest["current_completions"] != float64(1) {
		t.Fatalf("unexpected quest: %v", quest)
	}

	status, resp = env.do(t, http.MethodGet, "/api/v1/payouts", "", nil)
	if status != http.StatusOK {
		t.Fatalf("payouts: expected 200, got %d", status)
	}
	if payouts := resp.Data.([]interface{}); len(payouts) != 1 {
		t.Fatalf("expected 1 payout, got %d", len(payouts))
	}

	status, resp = env.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil)
	if status != http.StatusOK {
		t.Fatalf("leaderboard: expected 200, got %d", status)
	}
	board := resp.Data.([]interface{})
	if len(board) != 1 || board[0].(map[string]interface{})["user"] != "GALICE" {
		t.Fatalf("unexpected leaderboard: %v", board)
	}
}

func TestCompleteExpiredQuestIsSticky(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	expires := env.clock().Add(time.Hour)
	env.createQuest(t, models.CreateQuestRequest{ID: "Q1", Title: "Timed", ExpiresAt: &expires})

	env.advance(2 * time.Hour)

	status, resp := env.do(t, http.MethodPost, "/api/v1/quests/Q1/complete", "GALICE", nil)
	if status != http.StatusConflict || errorCode(resp) != "expired" {
		t.Fatalf("expected 409 expired, got %d %s", status, errorCode(resp))
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/quests/Q1", "", nil)
	if got := resp.Data.(map[string]interface{})["status"]; got != string(models.QuestCancelled) {
		t.Fatalf("expected cancelled after expiry, got %v", got)
	}
}

func TestCancelQuestRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)
	env.createQuest(t, models.CreateQuestRequest{ID: "Q1", Title: "First"})

	status, resp := env.do(t, http.MethodPost, "/api/v1/quests/Q1/cancel", "GALICE", nil)
	if status != http.StatusForbidden || errorCode(resp) != "unauthorized" {
		t.Fatalf("expected 403 unauthorized, got %d %s", status, errorCode(resp))
	}

	status, _ = env.do(t, http.MethodPost, "/api/v1/quests/Q1/cancel", "GADMIN", nil)
	if status != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", status)
	}

	status, resp = env.do(t, http.MethodPost, "/api/v1/quests/MISSING/cancel", "GADMIN", nil)
	if status != http.StatusNotFound || errorCode(resp) != "not_found" {
		t.Fatalf("expected 404 not_found, got %d %s", status, errorCode(resp))
	}
}

func TestListQuestsFiltersByStatus(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)
	env.createQuest(t, models.CreateQuestRequest{ID: "Q1", Title: "One"})
	env.createQuest(t, models.CreateQuestRequest{ID: "Q2", Title: "Two"})
	env.do(t, http.MethodPost, "/api/v1/quests/Q2/cancel", "GADMIN", nil)

	_, resp := env.do(t, http.MethodGet, "/api/v1/quests?status=active", "", nil)
	data := resp.Data.(map[string]interface{})
	if quests := data["quests"].([]interface{}); len(quests) != 1 {
		t.Fatalf("expected 1 active quest, got %d", len(quests))
	}
	if data["total"] != float64(2) {
		t.Fatalf("expected total 2, got %v", data["total"])
	}

	status, resp := env.do(t, http.MethodGet, "/api/v1/quests?status=bogus", "", nil)
	if status != http.StatusBadRequest || errorCode(resp) != "invalid_input" {
		t.Fatalf("expected 400 invalid_input, got %d %s", status, errorCode(resp))
	}
}

func TestBadgeMintAndTransfer(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	mint := models.MintBadgeRequest{To: "GALICE", BadgeID: "B1", QuestID: "Q1", Metadata: "gold"}

	status, resp := env.do(t, http.MethodPost, "/api/v1/badges", "GALICE", mint)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-orchestrator mint, got %d %s", status, errorCode(resp))
	}

	status, _ = env.do(t, http.MethodPost, "/api/v1/badges", "GORCH", mint)
	if status != http.StatusCreated {
		t.Fatalf("mint: expected 201, got %d", status)
	}

	status, resp = env.do(t, http.MethodPost, "/api/v1/badges", "GORCH", mint)
	if status != http.StatusConflict || errorCode(resp) != "already_minted" {
		t.Fatalf("expected 409 already_minted, got %d %s", status, errorCode(resp))
	}

	status, resp = env.do(t, http.MethodPost, "/api/v1/badges/B1/transfer", "GBOB", models.TransferBadgeRequest{To: "GBOB"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner transfer, got %d %s", status, errorCode(resp))
	}

	status, _ = env.do(t, http.MethodPost, "/api/v1/badges/B1/transfer", "GALICE", models.TransferBadgeRequest{To: "GBOB"})
	if status != http.StatusOK {
		t.Fatalf("transfer: expected 200, got %d", status)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/badges/B1/owner", "", nil)
	if owner := resp.Data.(map[string]interface{})["owner"]; owner != "GBOB" {
		t.Fatalf("expected owner GBOB, got %v", owner)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/users/GALICE/badges", "", nil)
	if held := resp.Data.([]interface{}); len(held) != 0 {
		t.Fatalf("expected GALICE to hold nothing, got %v", held)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/badges", "", nil)
	if total := resp.Data.(map[string]interface{})["total"]; total != float64(1) {
		t.Fatalf("expected 1 badge, got %v", total)
	}

	status, resp = env.do(t, http.MethodGet, "/api/v1/badges/NOPE", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", status, errorCode(resp))
	}
}

func TestEventHistory(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)
	env.createQuest(t, models.CreateQuestRequest{ID: "Q1", Title: "First"})

	status, resp := env.do(t, http.MethodGet, "/api/v1/events/history?after=1", "", nil)
	if status != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", status)
	}
	evts := resp.Data.([]interface{})
	if len(evts) != 1 {
		t.Fatalf("expected 1 event after sequence 1, got %d", len(evts))
	}
	if topic := evts[0].(map[string]interface{})["topic"]; topic != models.TopicQuestCreated {
		t.Fatalf("expected %s, got %v", models.TopicQuestCreated, topic)
	}

	status, _ = env.do(t, http.MethodGet, "/api/v1/events", "", nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without stream, got %d", status)
	}
}
