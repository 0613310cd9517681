package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/larkbot/config"
	"github.com/mohammad-safakhou/larkbot/models"
)

func testClient(url string) *Client {
	return NewClient(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
}

func chatReply(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
	})
	return string(raw)
}

func TestComplete(t *testing.T) {
	t.Parallel()
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(chatReply("hello there")))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Complete(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("got %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("got auth %q", gotAuth)
	}
	if gotReq.ResponseFormat != nil {
		t.Fatalf("free-text completion must not set response_format")
	}
}

func TestCompleteJSON(t *testing.T) {
	t.Parallel()
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(chatReply("```json\n{\"next\": \"news\"}\n```")))
	}))
	defer srv.Close()

	var out struct {
		Next string `json:"next"`
	}
	if err := testClient(srv.URL).CompleteJSON(context.Background(), []models.Message{{Role: models.RoleUser, Content: "route"}}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Next != "news" {
		t.Fatalf("got %q", out.Next)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %+v", gotReq.ResponseFormat)
	}
}

func TestCompleteJSONMalformedOutput(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("I am sorry, I cannot answer that")))
	}))
	defer srv.Close()

	var out map[string]string
	err := testClient(srv.URL).CompleteJSON(context.Background(), []models.Message{{Role: models.RoleUser, Content: "route"}}, &out)
	if !errors.Is(err, models.ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestCompleteTransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, models.ErrMalformedOutput) {
		t.Fatalf("transport failures must not be reported as malformed output")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Complete(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
