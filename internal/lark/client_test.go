package lark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammad-safakhou/larkbot/config"
)

func testServer(t *testing.T, tokenCalls *int32, onSend func(r *http.Request, body map[string]string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/open-apis/auth/v3/tenant_access_token/internal":
			atomic.AddInt32(tokenCalls, 1)
			json.NewEncoder(w).Encode(map[string]any{"code": 0, "tenant_access_token": "t-abc", "expire": 7200})
		case "/open-apis/im/v1/messages":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if onSend != nil {
				onSend(r, body)
			}
			json.NewEncoder(w).Encode(map[string]any{"code": 0})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestSendTextUsesCachedToken(t *testing.T) {
	t.Parallel()
	var tokenCalls int32
	var gotAuth, gotIDType string
	var gotBody map[string]string
	srv := testServer(t, &tokenCalls, func(r *http.Request, body map[string]string) {
		gotAuth = r.Header.Get("Authorization")
		gotIDType = r.URL.Query().Get("receive_id_type")
		gotBody = body
	})
	defer srv.Close()

	c := NewClient(config.LarkConfig{AppID: "app", AppSecret: "secret", BaseURL: srv.URL, Timeout: 5 * time.Second})
	ctx := context.Background()

	if err := c.SendText(ctx, ReceiveByChatID, "oc-1", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.SendText(ctx, ReceiveByChatID, "oc-1", "again"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if atomic.LoadInt32(&tokenCalls) != 1 {
		t.Fatalf("token must be cached across sends, got %d requests", tokenCalls)
	}
	if gotAuth != "Bearer t-abc" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotIDType != "chat_id" {
		t.Fatalf("receive_id_type = %q", gotIDType)
	}
	if gotBody["msg_type"] != "text" || gotBody["receive_id"] != "oc-1" {
		t.Fatalf("unexpected send body: %+v", gotBody)
	}
	var content map[string]string
	if err := json.Unmarshal([]byte(gotBody["content"]), &content); err != nil || content["text"] != "again" {
		t.Fatalf("unexpected content: %q", gotBody["content"])
	}
}

func TestSendCard(t *testing.T) {
	t.Parallel()
	var tokenCalls int32
	var gotBody map[string]string
	srv := testServer(t, &tokenCalls, func(_ *http.Request, body map[string]string) {
		gotBody = body
	})
	defer srv.Close()

	c := NewClient(config.LarkConfig{AppID: "app", AppSecret: "secret", BaseURL: srv.URL, Timeout: 5 * time.Second})
	card := map[string]any{"config": map[string]any{"update_multi": true}}
	if err := c.SendCard(context.Background(), ReceiveByOpenID, "ou-1", card); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["msg_type"] != "interactive" || gotBody["receive_id"] != "ou-1" {
		t.Fatalf("unexpected send body: %+v", gotBody)
	}
}

func TestSendSurfacesPlatformError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/open-apis/auth/v3/tenant_access_token/internal" {
			json.NewEncoder(w).Encode(map[string]any{"code": 0, "tenant_access_token": "t", "expire": 7200})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"code": 230002, "msg": "bot not in chat"})
	}))
	defer srv.Close()

	c := NewClient(config.LarkConfig{AppID: "app", AppSecret: "secret", BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err := c.SendText(context.Background(), ReceiveByChatID, "oc-1", "hi"); err == nil {
		t.Fatalf("expected platform error")
	}
}

func TestTokenErrorPropagates(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 99991663, "msg": "app not found"})
	}))
	defer srv.Close()

	c := NewClient(config.LarkConfig{AppID: "app", AppSecret: "secret", BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err := c.SendText(context.Background(), ReceiveByChatID, "oc-1", "hi"); err == nil {
		t.Fatalf("expected token error")
	}
}
