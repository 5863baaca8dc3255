package filter

import (
	"context"
	"time"

	logger "github.com/rs/zerolog/log"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/pkg/scriptexec"
)

// EvaluateTriggerConditions runs a monitor's trigger_conditions scripts in
// declared order against a surviving MonitorMatch, gating it further
// (spec.md §4.6 step 4). The first script to return false aborts the
// match; any script's timeout or non-zero exit is also treated as false.
func (e *Engine) EvaluateTriggerConditions(ctx context.Context, m model.Monitor, match model.MonitorMatch) bool {
	for _, script := range m.TriggerConditions {
		timeout := time.Duration(script.TimeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		result := scriptexec.Run(ctx, script.Path, script.Args, match, timeout)
		if result.TimedOut {
			filterLog.Warn().Str("monitor", m.Name).Str("script", script.Path).Msg("trigger condition script timed out")
		}
		if !scriptexec.ClassifyFilter(result) {
			return false
		}
	}
	return true
}
