package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockwatch/sentinel/internal/model"
)

func TestClassifyHTTPStatus(t *testing.T) {
	cases := map[int]model.NotifyOutcome{
		200: model.NotifyOk,
		204: model.NotifyOk,
		299: model.NotifyOk,
		408: model.NotifyRetryable,
		429: model.NotifyRetryable,
		500: model.NotifyRetryable,
		503: model.NotifyRetryable,
		400: model.NotifyTerminal,
		401: model.NotifyTerminal,
		404: model.NotifyTerminal,
	}
	for status, want := range cases {
		assert.Equal(t, want, classifyHTTPStatus(status), "status %d", status)
	}
}

func TestWebhookNotifier_SendsSlackBodyAndClassifiesOk(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &webhookNotifier{url: srv.URL, client: srv.Client(), buildBody: slackBody}
	outcome := n.Send(context.Background(), Payload{Title: "Match", Body: "tx 0xabc"})

	assert.Equal(t, model.NotifyOk, outcome)
	assert.Contains(t, gotBody, "Match")
	assert.Contains(t, gotBody, "0xabc")
}

func TestWebhookConfigNotifier_SignsBodyWhenSecretSet(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature-256")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := model.WebhookConfig{URL: srv.URL, Secret: "shh", BodyTemplate: "{}"}
	n := newWebhookConfigNotifier(cfg, srv.Client())

	outcome := n.Send(context.Background(), Payload{Body: "tx 0xabc"})
	require.Equal(t, model.NotifyOk, outcome)
	assert.NotEmpty(t, gotSig)
}

func TestWebhookConfigNotifier_NoSecretMeansNoSignatureHeader(t *testing.T) {
	var gotSig string
	sawHeader := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig, sawHeader = r.Header.Get("X-Signature-256"), r.Header.Get("X-Signature-256") != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := model.WebhookConfig{URL: srv.URL, BodyTemplate: "{}"}
	n := newWebhookConfigNotifier(cfg, srv.Client())

	n.Send(context.Background(), Payload{Body: "tx 0xabc"})
	assert.False(t, sawHeader)
	assert.Empty(t, gotSig)
}

func TestWebhookConfigNotifier_DefaultsToTextPlainContentType(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := model.WebhookConfig{URL: srv.URL, BodyTemplate: "{}"}
	n := newWebhookConfigNotifier(cfg, srv.Client())

	n.Send(context.Background(), Payload{Body: "tx 0xabc"})
	assert.Equal(t, "text/plain", gotContentType)
}

func TestWebhookConfigNotifier_HeaderOverridesContentType(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := model.WebhookConfig{
		URL:          srv.URL,
		BodyTemplate: "{}",
		Headers:      map[string]string{"Content-Type": "application/json"},
	}
	n := newWebhookConfigNotifier(cfg, srv.Client())

	n.Send(context.Background(), Payload{Body: "tx 0xabc"})
	assert.Equal(t, "application/json", gotContentType)
}

func TestWebhookNotifier_TransportErrorIsRetryable(t *testing.T) {
	n := &webhookNotifier{url: "http://127.0.0.1:0", client: &http.Client{}, buildBody: slackBody}
	outcome := n.Send(context.Background(), Payload{})
	assert.Equal(t, model.NotifyRetryable, outcome)
}
