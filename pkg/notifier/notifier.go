// Package notifier implements the uniform notifier contract (spec.md
// §4.8): Slack, Discord, Telegram, Webhook, Email and Script sinks, each
// classifying its send attempt as Ok, Retryable or Terminal.
package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/blockwatch/sentinel/internal/model"
)

// DefaultTimeout bounds a single Slack, Discord or Webhook send attempt
// (spec.md §5). Telegram sends do not apply it, and Script runs use their
// own timeout_ms.
const DefaultTimeout = 10 * time.Second

// EmailTimeout bounds one Email send attempt.
const EmailTimeout = 30 * time.Second

// DefaultOutboundRPS caps outbound notification requests across every
// Slack/Discord/Webhook sink sharing one http.Client, so a burst of
// matches on one network can't hammer a downstream endpoint.
const DefaultOutboundRPS = 10

// rateLimitedTransport throttles outbound requests through a shared
// golang.org/x/time/rate.Limiter before delegating to next.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// NewRateLimitedClient returns an *http.Client whose requests are
// throttled to rps requests per second, shared by every sink built from
// it. A non-positive rps falls back to DefaultOutboundRPS.
func NewRateLimitedClient(rps int, timeout time.Duration) *http.Client {
	if rps <= 0 {
		rps = DefaultOutboundRPS
	}
	transport := &rateLimitedTransport{
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		next:    http.DefaultTransport,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Payload is the rendered content handed to a Notifier. Title/Body are
// populated from a trigger's templates for every kind except Script,
// which instead receives the raw MonitorMatch.
type Payload struct {
	Title string
	Body  string
	Match model.MonitorMatch
}

// Notifier is the uniform send contract every sink implements.
type Notifier interface {
	Send(ctx context.Context, payload Payload) model.NotifyOutcome
}

// New builds the Notifier for a Trigger's configured kind.
func New(t model.Trigger, httpClient *http.Client) (Notifier, error) {
	switch t.Kind {
	case model.TriggerKindSlack:
		if t.Slack == nil {
			return nil, fmt.Errorf("trigger %q: slack kind missing slack config", t.Name)
		}
		return &webhookNotifier{url: t.Slack.WebhookURL, client: httpClient, buildBody: slackBody}, nil
	case model.TriggerKindDiscord:
		if t.Discord == nil {
			return nil, fmt.Errorf("trigger %q: discord kind missing discord config", t.Name)
		}
		return &webhookNotifier{url: t.Discord.WebhookURL, client: httpClient, buildBody: discordBody}, nil
	case model.TriggerKindWebhook:
		if t.Webhook == nil {
			return nil, fmt.Errorf("trigger %q: webhook kind missing webhook config", t.Name)
		}
		return newWebhookConfigNotifier(*t.Webhook, httpClient), nil
	case model.TriggerKindTelegram:
		if t.Telegram == nil {
			return nil, fmt.Errorf("trigger %q: telegram kind missing telegram config", t.Name)
		}
		return newTelegramNotifier(*t.Telegram)
	case model.TriggerKindEmail:
		if t.Email == nil {
			return nil, fmt.Errorf("trigger %q: email kind missing email config", t.Name)
		}
		return &emailNotifier{cfg: *t.Email}, nil
	case model.TriggerKindScript:
		if t.Script == nil {
			return nil, fmt.Errorf("trigger %q: script kind missing script config", t.Name)
		}
		return &scriptNotifier{cfg: *t.Script}, nil
	default:
		return nil, fmt.Errorf("trigger %q: unknown kind %q", t.Name, t.Kind)
	}
}

// classifyHTTPStatus implements the shared Slack/Discord/Webhook outcome
// rule (spec.md §4.8): 2xx is Ok, 408/429/5xx is Retryable, other 4xx is
// Terminal.
func classifyHTTPStatus(status int) model.NotifyOutcome {
	switch {
	case status >= 200 && status < 300:
		return model.NotifyOk
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return model.NotifyRetryable
	default:
		return model.NotifyTerminal
	}
}
