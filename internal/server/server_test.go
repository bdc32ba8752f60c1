package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/C4rlos-asx/IA-con-recuerdos/internal/app"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/effects"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/ratelimit"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/store"
	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

type scriptedGenerator struct {
	reply string
}

func (g *scriptedGenerator) Generate(ctx context.Context, messages []domain.Message, modelID string) (string, error) {
	return g.reply, nil
}

type harness struct {
	handler http.Handler
	store   *store.MemoryStore
	runner  *effects.Runner
}

type harnessOptions struct {
	rateLimit int
	noOpenAI  bool
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if opts.rateLimit == 0 {
		opts.rateLimit = 60
	}
	limiter, err := ratelimit.NewFixedWindowLimiter(client, opts.rateLimit, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	st := store.NewMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	runner := effects.NewRunner(2, logger)

	var openai *scriptedGenerator
	if !opts.noOpenAI {
		openai = &scriptedGenerator{reply: "respuesta del modelo"}
	}
	cfg := app.Config{
		Store:    st,
		Contexts: store.NewRedisContextStore(client, 10, 24*time.Hour),
		Limiter:  limiter,
		Gemini:   &scriptedGenerator{reply: "respuesta gemini"},
		Runner:   runner,
		Logger:   logger,
	}
	if openai != nil {
		cfg.OpenAI = openai
	}

	srv := New(app.New(cfg), logger, "")
	return &harness{handler: srv.Handler(), store: st, runner: runner}
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.runner.Shutdown(ctx); err != nil {
		t.Fatalf("drain effects: %v", err)
	}
}

func (h *harness) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rec, &body)
	return body["error"]
}

func sendChat(t *testing.T, h *harness, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return h.do(t, http.MethodPost, "/chat", payload)
}

func TestChatRejectsInvalidMessageLists(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	cases := []struct {
		name    string
		payload any
	}{
		{"missing messages", map[string]any{"userId": "u1"}},
		{"empty messages", map[string]any{"messages": []any{}}},
		{"messages not a list", map[string]any{"messages": "hola"}},
		{"blank last content", map[string]any{"messages": []any{map[string]any{"role": "user", "content": "  "}}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := sendChat(t, h, c.payload.(map[string]any))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if code := errorCode(t, rec); code != "invalid_request" {
				t.Fatalf("error code = %q", code)
			}
		})
	}
}

func TestChatMalformedBodyIs400(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{no es json"))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatRateLimitCeiling(t *testing.T) {
	h := newHarness(t, harnessOptions{rateLimit: 3})
	payload := map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "hola"}},
		"userId":   "u1",
	}
	for i := 1; i <= 3; i++ {
		rec := sendChat(t, h, payload)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}
	rec := sendChat(t, h, payload)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-ceiling status = %d, want 429", rec.Code)
	}
	if code := errorCode(t, rec); code != "rate_limited" {
		t.Fatalf("error code = %q", code)
	}
}

func TestChatMissingProviderCredentialIs500(t *testing.T) {
	h := newHarness(t, harnessOptions{noOpenAI: true})
	rec := sendChat(t, h, map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "Hola"}},
		"userId":   "u1",
		"model":    map[string]any{"provider": "openai"},
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if code := errorCode(t, rec); code != "provider_not_configured" {
		t.Fatalf("error code = %q", code)
	}
}

func TestChatSuccessReturnsReplyAndChatID(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := sendChat(t, h, map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "Hola"}},
		"userId":   "u1",
		"model":    map[string]any{"id": "gpt-3.5-turbo", "provider": "openai"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		ChatID  string `json:"chatId"`
	}
	decodeBody(t, rec, &body)
	if body.Role != "assistant" || body.Content == "" || body.ChatID == "" {
		t.Fatalf("body = %+v", body)
	}
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Fatal("missing X-RateLimit-Remaining header")
	}
}

func TestChatRoundTripAndTranscriptGrowth(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	first := sendChat(t, h, map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "Hola"}},
		"userId":   "u1",
	})
	if first.Code != http.StatusOK {
		t.Fatalf("first send: status = %d", first.Code)
	}
	var firstBody struct {
		ChatID string `json:"chatId"`
	}
	decodeBody(t, first, &firstBody)
	h.drain(t)

	rec := h.do(t, http.MethodGet, "/chat?userId=u1&chatId="+firstBody.ChatID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get chat: status = %d", rec.Code)
	}
	var chat domain.Chat
	decodeBody(t, rec, &chat)
	if len(chat.Messages) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(chat.Messages))
	}
	if chat.Messages[0].Content != "Hola" {
		t.Fatalf("first message = %+v", chat.Messages[0])
	}

	transcript := make([]any, 0, len(chat.Messages)+1)
	for _, m := range chat.Messages {
		transcript = append(transcript, map[string]any{"role": string(m.Role), "content": m.Content})
	}
	transcript = append(transcript, map[string]any{"role": "user", "content": "¿y ahora?"})

	second := sendChat(t, h, map[string]any{
		"messages": transcript,
		"userId":   "u1",
		"chatId":   firstBody.ChatID,
	})
	if second.Code != http.StatusOK {
		t.Fatalf("second send: status = %d", second.Code)
	}
	h.drain(t)

	updated, _, _ := h.store.GetChat(firstBody.ChatID)
	if got := len(updated.Messages); got != 4 {
		t.Fatalf("transcript length after second turn = %d, want 4", got)
	}
}

func TestChatListOrderedByRecency(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		err := h.store.CreateChat(domain.Chat{
			ID:        fmt.Sprintf("c%d", i),
			UserID:    "u1",
			Title:     fmt.Sprintf("charla %d", i),
			CreatedAt: ts,
			UpdatedAt: ts,
		})
		if err != nil {
			t.Fatalf("seed chat: %v", err)
		}
	}

	rec := h.do(t, http.MethodGet, "/chat?userId=u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Chats []domain.ChatSummary `json:"chats"`
	}
	decodeBody(t, rec, &body)
	if len(body.Chats) != 3 {
		t.Fatalf("chats = %d", len(body.Chats))
	}
	for i := 0; i < len(body.Chats)-1; i++ {
		if body.Chats[i].UpdatedAt.Before(body.Chats[i+1].UpdatedAt) {
			t.Fatalf("chats out of order: %v", body.Chats)
		}
	}
}

func TestChatForeignUserIs404(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	now := time.Now().UTC()
	if err := h.store.CreateChat(domain.Chat{ID: "c1", UserID: "owner", Title: "x", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	rec := h.do(t, http.MethodGet, "/chat?userId=intruso&chatId=c1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestChatManageRenameAndDelete(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	now := time.Now().UTC()
	if err := h.store.CreateChat(domain.Chat{ID: "c1", UserID: "u1", Title: "x", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	rec := h.do(t, http.MethodPatch, "/chat/manage", map[string]any{"chatId": "c1", "title": "renombrada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rec.Code)
	}
	chat, _, _ := h.store.GetChat("c1")
	if chat.Title != "renombrada" {
		t.Fatalf("title = %q", chat.Title)
	}

	rec = h.do(t, http.MethodPatch, "/chat/manage", map[string]any{"chatId": "c1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("rename without title: status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodDelete, "/chat/manage?chatId=c1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, ok, _ := h.store.GetChat("c1"); ok {
		t.Fatal("chat still present after delete")
	}

	rec = h.do(t, http.MethodDelete, "/chat/manage", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete without id: status = %d", rec.Code)
	}
}

func TestMemoryTriggerViaChat(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := sendChat(t, h, map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "Recuerda que odio el cilantro"}},
		"userId":   "u1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	h.drain(t)

	memories, err := h.store.ListMemoriesByUser("u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(memories) != 1 || memories[0].Content != "Recuerda que odio el cilantro" {
		t.Fatalf("memories = %+v", memories)
	}
}

func TestMemoryEndpoints(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(t, http.MethodPost, "/memory", map[string]any{"userId": "u1", "content": "vive en Sevilla"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/memory?userId=u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var body struct {
		Memories []domain.Memory `json:"memories"`
	}
	decodeBody(t, rec, &body)
	if len(body.Memories) != 1 || body.Memories[0].Content != "vive en Sevilla" {
		t.Fatalf("memories = %+v", body.Memories)
	}

	rec = h.do(t, http.MethodGet, "/memory", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("help status = %d", rec.Code)
	}
	var help map[string]string
	decodeBody(t, rec, &help)
	if help["error"] != "missing_user_id" || help["example"] == "" {
		t.Fatalf("help payload = %+v", help)
	}
}

func TestCustomModelCRUDAndOwnership(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(t, http.MethodPost, "/custom-model", map[string]any{
		"userId":       "u1",
		"name":         "Tutor",
		"instructions": "Explica paso a paso",
		"baseModelId":  "gpt-4o-mini",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created domain.CustomModel
	decodeBody(t, rec, &created)

	rec = h.do(t, http.MethodPut, "/custom-model", map[string]any{
		"id":     created.ID,
		"userId": "intruso",
		"name":   "robado",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign update status = %d", rec.Code)
	}
	row, _, _ := h.store.GetCustomModel(created.ID)
	if row.Name != "Tutor" {
		t.Fatalf("row mutated by rejected update: %+v", row)
	}

	rec = h.do(t, http.MethodPut, "/custom-model", map[string]any{
		"id":     created.ID,
		"userId": "u1",
		"name":   "Profesor",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	var updated domain.CustomModel
	decodeBody(t, rec, &updated)
	if updated.Name != "Profesor" || updated.Instructions != "Explica paso a paso" {
		t.Fatalf("updated = %+v", updated)
	}

	rec = h.do(t, http.MethodDelete, "/custom-model?id="+created.ID+"&userId=intruso", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/custom-model?userId=u1", nil)
	var list struct {
		CustomModels []domain.CustomModel `json:"customModels"`
	}
	decodeBody(t, rec, &list)
	if len(list.CustomModels) != 1 {
		t.Fatalf("list = %+v", list.CustomModels)
	}

	rec = h.do(t, http.MethodDelete, "/custom-model?id="+created.ID+"&userId=u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, ok, _ := h.store.GetCustomModel(created.ID); ok {
		t.Fatal("row still present after delete")
	}
}

func TestModelsCatalog(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := h.do(t, http.MethodGet, "/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Models []domain.ModelSpec `json:"models"`
	}
	decodeBody(t, rec, &body)
	if len(body.Models) == 0 {
		t.Fatal("empty model catalog")
	}
}

func TestCORSHeaderOnEveryRoute(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := h.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("CORS header = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
