// Package blockwatcher implements BlockWatcher (spec.md §4.4): on each
// tick, compute the safe block range, fetch/decode/filter/dispatch every
// block in ascending order, and advance the cursor only after every block
// in the range has been fully dispatched.
package blockwatcher

import (
	"context"
	"errors"
	"strings"

	logger "github.com/rs/zerolog/log"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/internal/repository"
	"github.com/blockwatch/sentinel/pkg/blockstore"
	"github.com/blockwatch/sentinel/pkg/chainclient"
	"github.com/blockwatch/sentinel/pkg/cursor"
	"github.com/blockwatch/sentinel/pkg/decoder"
	"github.com/blockwatch/sentinel/pkg/filter"
	"github.com/blockwatch/sentinel/pkg/trigger"
)

var watcherLog = logger.With().Str("component", "blockwatcher").Logger()

// Watcher orchestrates one network's tick.
type Watcher struct {
	network        model.Network
	cronIntervalMS int64

	client     chainclient.Client
	decoder    decoder.Decoder
	engine     *filter.Engine
	dispatcher *trigger.Dispatcher
	cursor     *cursor.Cursor
	store      *blockstore.Store
	repo       *repository.Repositories
}

// New returns a Watcher for network.
func New(
	network model.Network,
	cronIntervalMS int64,
	client chainclient.Client,
	dec decoder.Decoder,
	engine *filter.Engine,
	dispatcher *trigger.Dispatcher,
	cur *cursor.Cursor,
	store *blockstore.Store,
	repo *repository.Repositories,
) *Watcher {
	return &Watcher{
		network:        network,
		cronIntervalMS: cronIntervalMS,
		client:         client,
		decoder:        dec,
		engine:         engine,
		dispatcher:     dispatcher,
		cursor:         cur,
		store:          store,
		repo:           repo,
	}
}

// Tick runs one pass of the algorithm in spec.md §4.4. It never returns an
// error to its caller (the Scheduler's fn signature is fire-and-forget);
// failures are logged, and a TransientFetch specifically is logged as the
// documented "tick aborted, cursor not advanced" outcome.
func (w *Watcher) Tick(ctx context.Context) {
	if err := w.tick(ctx); err != nil {
		var transient *model.TransientFetch
		if errors.As(err, &transient) {
			watcherLog.Warn().Str("network", w.network.Slug).Err(err).
				Msg("tick aborted: transient fetch failure, cursor not advanced")
			return
		}
		watcherLog.Error().Str("network", w.network.Slug).Err(err).Msg("tick aborted")
	}
}

func (w *Watcher) tick(ctx context.Context) error {
	latest, err := w.client.LatestHeight(ctx)
	if err != nil {
		return err
	}

	confirmations := w.network.ConfirmationBlocks
	if latest < confirmations {
		return nil // no block is safe yet
	}
	safeLatest := latest - confirmations

	last, ok := w.cursor.Get(w.network.Slug)
	var from uint64
	if ok {
		from = last + 1
	} else {
		from = safeLatest // first run: process only the newest safe block
	}

	maxPast := w.network.EffectiveMaxPastBlocks(w.cronIntervalMS)
	if safeLatest+1 > maxPast {
		if floor := safeLatest + 1 - maxPast; floor > from {
			watcherLog.Warn().Str("network", w.network.Slug).
				Uint64("skipped_blocks", floor-from).
				Uint64("from", floor).
				Msg("outage longer than max_past_blocks: skipping blocks older than the window")
			from = floor
		}
	}
	if from > safeLatest {
		return nil // nothing to do
	}

	monitors := w.repo.MonitorsForNetwork(w.network.Slug)
	addresses := unionAddresses(monitors)
	addressStrs := addressStrings(addresses)

	for h := from; h <= safeLatest; h++ {
		if err := w.processBlock(ctx, h, monitors, addresses, addressStrs); err != nil {
			return err
		}
	}

	return w.cursor.Set(w.network.Slug, safeLatest)
}

func (w *Watcher) processBlock(
	ctx context.Context,
	height uint64,
	monitors []model.Monitor,
	addresses []model.MonitoredAddress,
	addressStrs []string,
) error {
	block, err := w.client.FetchBlock(ctx, height)
	if err != nil {
		return err
	}

	if w.network.StoreBlocks && w.store != nil {
		if err := w.store.Save(w.network.Slug, height, block); err != nil {
			watcherLog.Error().Str("network", w.network.Slug).Uint64("height", height).Err(err).
				Msg("archiving block failed, continuing")
		}
	}

	receiptsOrTraces, err := w.client.FetchReceiptsOrTraces(ctx, block)
	if err != nil {
		return err
	}

	logs, err := w.client.FetchLogs(ctx, height, height, addressStrs)
	if err != nil {
		return err
	}

	candidates, err := w.decoder.Decode(ctx, block, receiptsOrTraces, logs, addresses)
	if err != nil {
		return err
	}

	matches := w.evaluateCandidates(ctx, monitors, candidates)
	w.dispatcher.DispatchAll(ctx, matches)
	return nil
}

func (w *Watcher) evaluateCandidates(ctx context.Context, monitors []model.Monitor, candidates []model.MatchCandidate) []model.MonitorMatch {
	var matches []model.MonitorMatch
	for _, c := range candidates {
		for _, m := range monitors {
			ok, matched := w.engine.Evaluate(m, c)
			if !ok {
				continue
			}
			match := model.MonitorMatch{
				MonitorName:       m.Name,
				NetworkSlug:       w.network.Slug,
				Candidate:         c,
				MatchedConditions: matched,
			}
			if !w.engine.EvaluateTriggerConditions(ctx, m, match) {
				continue
			}
			matches = append(matches, match)
		}
	}
	return matches
}

func unionAddresses(monitors []model.Monitor) []model.MonitoredAddress {
	seen := make(map[string]bool)
	var out []model.MonitoredAddress
	for _, m := range monitors {
		for _, a := range m.Addresses {
			key := strings.ToLower(a.Address)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a)
		}
	}
	return out
}

func addressStrings(addrs []model.MonitoredAddress) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Address
	}
	return out
}
