package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mohammad-safakhou/larkbot/config"
	"github.com/mohammad-safakhou/larkbot/internal/httpx"
)

// Receiver id types accepted by the message API.
const (
	ReceiveByChatID = "chat_id"
	ReceiveByOpenID = "open_id"
)

// Client sends messages through the Lark open platform. Tenant access
// tokens are cached until shortly before expiry.
type Client struct {
	appID     string
	appSecret string
	baseURL   string
	http      *httpx.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(cfg config.LarkConfig) *Client {
	return &Client{
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		baseURL:   cfg.BaseURL,
		http:      httpx.NewClient(cfg.Timeout, cfg.MaxRetries, 0),
	}
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

func (c *Client) tenantAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	body := map[string]string{"app_id": c.appID, "app_secret": c.appSecret}
	var resp tokenResponse
	if err := c.http.DoJSON(ctx, "POST", c.baseURL+"/open-apis/auth/v3/tenant_access_token/internal", nil, body, &resp); err != nil {
		return "", fmt.Errorf("tenant token request failed: %w", err)
	}
	if resp.Code != 0 {
		return "", fmt.Errorf("tenant token request failed: %s (code %d)", resp.Msg, resp.Code)
	}

	c.token = resp.TenantAccessToken
	// Refresh a minute early so in-flight sends never race the expiry.
	c.tokenExp = time.Now().Add(time.Duration(resp.Expire-60) * time.Second)
	return c.token, nil
}

type sendResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *Client) send(ctx context.Context, receiveIDType, receiveID, msgType, content string) error {
	token, err := c.tenantAccessToken(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/open-apis/im/v1/messages?receive_id_type=%s", c.baseURL, receiveIDType)
	headers := map[string]string{"Authorization": "Bearer " + token}
	body := map[string]string{
		"receive_id": receiveID,
		"msg_type":   msgType,
		"content":    content,
	}

	var resp sendResponse
	if err := c.http.DoJSON(ctx, "POST", url, headers, body, &resp); err != nil {
		return fmt.Errorf("message send failed: %w", err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("message send failed: %s (code %d)", resp.Msg, resp.Code)
	}
	return nil
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, receiveIDType, receiveID, text string) error {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	return c.send(ctx, receiveIDType, receiveID, "text", string(content))
}

// SendCard delivers an interactive card payload.
func (c *Client) SendCard(ctx context.Context, receiveIDType, receiveID string, card map[string]any) error {
	content, err := json.Marshal(card)
	if err != nil {
		return err
	}
	return c.send(ctx, receiveIDType, receiveID, "interactive", string(content))
}
