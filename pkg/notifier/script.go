package notifier

import (
	"context"
	"time"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/pkg/scriptexec"
)

// scriptNotifier spawns an external process with the MonitorMatch on
// stdin (spec.md §4.9), classifying a non-zero exit or timeout as
// Retryable.
type scriptNotifier struct {
	cfg model.ScriptConfig
}

func (n *scriptNotifier) Send(ctx context.Context, payload Payload) model.NotifyOutcome {
	timeout := time.Duration(n.cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	result := scriptexec.Run(ctx, n.cfg.Path, n.cfg.Args, payload.Match, timeout)
	return scriptexec.ClassifyNotify(result)
}
