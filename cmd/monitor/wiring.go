package main

import (
	"fmt"
	"time"

	logger "github.com/rs/zerolog/log"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/internal/repository"
	"github.com/blockwatch/sentinel/pkg/blockstore"
	"github.com/blockwatch/sentinel/pkg/blockwatcher"
	"github.com/blockwatch/sentinel/pkg/chainclient"
	"github.com/blockwatch/sentinel/pkg/cursor"
	"github.com/blockwatch/sentinel/pkg/decoder"
	"github.com/blockwatch/sentinel/pkg/filter"
	"github.com/blockwatch/sentinel/pkg/notifier"
	"github.com/blockwatch/sentinel/pkg/scheduler"
	"github.com/blockwatch/sentinel/pkg/trigger"
)

// networkStack bundles the per-network units created by createNetworkStack,
// directly modeled on the teacher's createChainIDStack/ChainStack pairing.
type networkStack struct {
	network model.Network
	client  chainclient.Client
	watcher *blockwatcher.Watcher
}

func (s networkStack) close() {
	s.client.Close()
}

// createNetworkStack builds the ChainClient, Decoder and Watcher for one
// network, sharing the engine, dispatcher, cursor and store across all
// networks.
func createNetworkStack(
	network model.Network,
	rpcTimeout time.Duration,
	engine *filter.Engine,
	dispatcher *trigger.Dispatcher,
	cur *cursor.Cursor,
	store *blockstore.Store,
	repo *repository.Repositories,
) (networkStack, error) {
	var client chainclient.Client
	var dec decoder.Decoder

	switch network.Kind {
	case model.ChainKindEVM:
		client = chainclient.NewEVMClient(network, rpcTimeout)
		dec = decoder.NewEVMDecoder()
	case model.ChainKindStellar:
		client = chainclient.NewStellarClient(network, rpcTimeout)
		dec = decoder.NewStellarDecoder()
	default:
		return networkStack{}, model.NewConfigError("network %q: unknown kind %q", network.Slug, network.Kind)
	}

	cronIntervalMS := scheduler.IntervalMS(network.CronSchedule)
	watcher := blockwatcher.New(network, cronIntervalMS, client, dec, engine, dispatcher, cur, store, repo)

	return networkStack{network: network, client: client, watcher: watcher}, nil
}

// createNetworkStacks builds one stack per configured network and registers
// each one's tick against the Scheduler.
func createNetworkStacks(
	networks []model.Network,
	rpcTimeout time.Duration,
	engine *filter.Engine,
	dispatcher *trigger.Dispatcher,
	cur *cursor.Cursor,
	store *blockstore.Store,
	repo *repository.Repositories,
	sched *scheduler.Scheduler,
) ([]networkStack, error) {
	stacks := make([]networkStack, 0, len(networks))
	for _, network := range networks {
		stack, err := createNetworkStack(network, rpcTimeout, engine, dispatcher, cur, store, repo)
		if err != nil {
			for _, s := range stacks {
				s.close()
			}
			return nil, fmt.Errorf("creating stack for network %q: %w", network.Slug, err)
		}
		if err := sched.Register(network.Slug, network.CronSchedule, stack.watcher.Tick); err != nil {
			for _, s := range stacks {
				s.close()
			}
			return nil, fmt.Errorf("registering network %q: %w", network.Slug, err)
		}
		stacks = append(stacks, stack)
	}
	return stacks, nil
}

func closeNetworkStacks(stacks []networkStack) {
	for _, s := range stacks {
		s.close()
	}
}

// buildNotifierFactory returns the trigger.NotifierFactory shared by every
// network's dispatcher.
func buildNotifierFactory() trigger.NotifierFactory {
	httpClient := notifier.NewRateLimitedClient(notifier.DefaultOutboundRPS, notifier.DefaultTimeout)
	return func(t model.Trigger) (notifier.Notifier, error) {
		return notifier.New(t, httpClient)
	}
}

func logStartup(networks []model.Network, dataDir, configDir string) {
	logger.Info().
		Int("networks", len(networks)).
		Str("data_dir", dataDir).
		Str("config_dir", configDir).
		Msg("starting")
}
