package trigger

import (
	"context"

	"github.com/google/uuid"
	logger "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/internal/repository"
	"github.com/blockwatch/sentinel/pkg/notifier"
	"github.com/blockwatch/sentinel/pkg/retry"
)

var dispatchLog = logger.With().Str("component", "trigger.dispatcher").Logger()

// DefaultFanOut bounds the number of MonitorMatches dispatched
// concurrently (spec.md §4.7).
const DefaultFanOut = 32

// MaxNotifyAttempts is the retry ceiling for a single trigger send
// (spec.md §4.8).
const MaxNotifyAttempts = 3

// NotifierFactory builds a Notifier for a Trigger. The Dispatcher calls it
// once per trigger send and does not cache the result.
type NotifierFactory func(model.Trigger) (notifier.Notifier, error)

// Dispatcher implements TriggerDispatcher (spec.md §4.7): for each
// MonitorMatch, render and send to every one of its monitor's configured
// triggers in declared order; across distinct MonitorMatches, dispatch
// runs concurrently up to a fan-out limit.
type Dispatcher struct {
	repo      *repository.Repositories
	buildSink NotifierFactory
	fanOut    int
}

// NewDispatcher returns a Dispatcher. fanOut <= 0 uses DefaultFanOut.
func NewDispatcher(repo *repository.Repositories, buildSink NotifierFactory, fanOut int) *Dispatcher {
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}
	return &Dispatcher{repo: repo, buildSink: buildSink, fanOut: fanOut}
}

// DispatchAll sends every MonitorMatch's triggers, bounding concurrency
// across matches at d.fanOut. It never returns an error: trigger lookup
// failures and send failures are logged and skipped so that one broken
// trigger never blocks cursor advance for the rest of the block.
func (d *Dispatcher) DispatchAll(ctx context.Context, matches []model.MonitorMatch) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.fanOut)

	for _, match := range matches {
		match := match
		g.Go(func() error {
			d.dispatchOne(gctx, match)
			return nil
		})
	}
	_ = g.Wait()
}

// dispatchOne sends match to every one of its monitor's triggers,
// sequentially, in declared order (spec.md §4.7's within-match ordering
// guarantee). Every call gets its own correlation id so the sequence of
// log lines for one match can be grepped out of the rest of the fan-out.
func (d *Dispatcher) dispatchOne(ctx context.Context, match model.MonitorMatch) {
	correlationID := uuid.New().String()

	monitor, ok := d.repo.Monitor(match.MonitorName)
	if !ok {
		dispatchLog.Error().Str("correlation_id", correlationID).Str("monitor", match.MonitorName).Msg("dispatching match for unknown monitor")
		return
	}

	vars := BuildVars(match)
	for _, triggerName := range monitor.Triggers {
		trg, ok := d.repo.Trigger(triggerName)
		if !ok {
			dispatchLog.Error().Str("correlation_id", correlationID).Str("trigger", triggerName).Msg("monitor references unknown trigger")
			continue
		}
		d.send(ctx, trg, match, vars, correlationID)
	}
}

func (d *Dispatcher) send(ctx context.Context, trg model.Trigger, match model.MonitorMatch, vars Vars, correlationID string) {
	sink, err := d.buildSink(trg)
	if err != nil {
		dispatchLog.Error().Str("correlation_id", correlationID).Str("trigger", trg.Name).Err(err).Msg("building notifier")
		return
	}

	payload := renderPayload(trg, match, vars)

	err = retry.Do(ctx, MaxNotifyAttempts, isRetryableError, func(attempt int) error {
		outcome := sink.Send(ctx, payload)
		return classifyOutcome(outcome, trg.Name, attempt)
	})
	if err != nil {
		dispatchLog.Warn().Str("correlation_id", correlationID).Str("trigger", trg.Name).Str("monitor", match.MonitorName).Err(err).Msg("notifier send exhausted retries")
	}
}

func classifyOutcome(outcome model.NotifyOutcome, triggerName string, attempt int) error {
	switch outcome {
	case model.NotifyOk:
		return nil
	case model.NotifyTerminal:
		return &terminalError{trigger: triggerName}
	default:
		return &retryableError{trigger: triggerName, attempt: attempt}
	}
}

// isRetryableError tells retry.Do to stop immediately on a terminalError
// but keep retrying a retryableError, per spec.md §4.8.
func isRetryableError(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}

type terminalError struct{ trigger string }

func (e *terminalError) Error() string { return "notifier " + e.trigger + ": terminal failure" }

type retryableError struct {
	trigger string
	attempt int
}

func (e *retryableError) Error() string { return "notifier " + e.trigger + ": retryable failure" }

// renderPayload builds the notifier.Payload appropriate to trg's kind:
// every kind except Script renders its templates from vars; Script
// receives the raw MonitorMatch instead (spec.md §4.9).
func renderPayload(trg model.Trigger, match model.MonitorMatch, vars Vars) notifier.Payload {
	switch trg.Kind {
	case model.TriggerKindSlack:
		return notifier.Payload{Title: Render(trg.Slack.TitleTemplate, vars), Body: Render(trg.Slack.BodyTemplate, vars)}
	case model.TriggerKindDiscord:
		return notifier.Payload{Title: Render(trg.Discord.TitleTemplate, vars), Body: Render(trg.Discord.BodyTemplate, vars)}
	case model.TriggerKindEmail:
		return notifier.Payload{Title: Render(trg.Email.SubjectTemplate, vars), Body: Render(trg.Email.BodyTemplate, vars)}
	case model.TriggerKindTelegram:
		return notifier.Payload{Body: Render(trg.Telegram.MessageTemplate, vars)}
	case model.TriggerKindWebhook:
		return notifier.Payload{Body: Render(trg.Webhook.BodyTemplate, vars)}
	case model.TriggerKindScript:
		return notifier.Payload{Match: match}
	default:
		return notifier.Payload{Match: match}
	}
}
