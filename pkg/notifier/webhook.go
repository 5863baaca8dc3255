package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/blockwatch/sentinel/internal/model"
)

// webhookNotifier POSTs a fixed-shape JSON body to a configured URL, used
// by Slack and Discord incoming webhooks.
type webhookNotifier struct {
	url       string
	client    *http.Client
	buildBody func(Payload) ([]byte, string)
}

func slackBody(p Payload) ([]byte, string) {
	body, _ := json.Marshal(map[string]string{"text": fmt.Sprintf("*%s*\n%s", p.Title, p.Body)})
	return body, "application/json"
}

func discordBody(p Payload) ([]byte, string) {
	body, _ := json.Marshal(map[string]string{"content": fmt.Sprintf("**%s**\n%s", p.Title, p.Body)})
	return body, "application/json"
}

func (n *webhookNotifier) Send(ctx context.Context, payload Payload) model.NotifyOutcome {
	body, contentType := n.buildBody(payload)
	return postJSON(ctx, n.client, n.url, http.MethodPost, body, contentType, nil)
}

// webhookConfigNotifier posts the rendered body as-is to a user-configured
// URL/method/headers, optionally signing it with an HMAC-SHA256 secret
// (spec.md §4.8).
type webhookConfigNotifier struct {
	cfg    model.WebhookConfig
	client *http.Client
}

func newWebhookConfigNotifier(cfg model.WebhookConfig, client *http.Client) *webhookConfigNotifier {
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	return &webhookConfigNotifier{cfg: cfg, client: client}
}

func (n *webhookConfigNotifier) Send(ctx context.Context, payload Payload) model.NotifyOutcome {
	headers := make(map[string]string, len(n.cfg.Headers)+1)
	for k, v := range n.cfg.Headers {
		headers[k] = v
	}
	body := []byte(payload.Body)
	if n.cfg.Secret != "" {
		mac := hmac.New(sha256.New, []byte(n.cfg.Secret))
		mac.Write(body)
		headers["X-Signature-256"] = hex.EncodeToString(mac.Sum(nil))
	}
	// text/plain by default (spec.md §4.8); a Headers["Content-Type"] override
	// above still wins since postJSON sets it last.
	return postJSON(ctx, n.client, n.cfg.URL, n.cfg.Method, body, "text/plain", headers)
}

func postJSON(ctx context.Context, client *http.Client, url, method string, body []byte, contentType string, headers map[string]string) model.NotifyOutcome {
	sendCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sendCtx, method, url, bytes.NewReader(body))
	if err != nil {
		return model.NotifyTerminal
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.NotifyRetryable
	}
	defer resp.Body.Close()

	return classifyHTTPStatus(resp.StatusCode)
}
