// Command monitor runs the chain monitoring daemon: it loads networks,
// monitors and triggers from disk, then ticks each network on its own
// cron schedule, dispatching notifications for every match.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	cfgpkg "github.com/blockwatch/sentinel/internal/config"
	"github.com/blockwatch/sentinel/internal/repository"
	"github.com/blockwatch/sentinel/pkg/blockstore"
	"github.com/blockwatch/sentinel/pkg/cursor"
	"github.com/blockwatch/sentinel/pkg/filter"
	"github.com/blockwatch/sentinel/pkg/logging"
	"github.com/blockwatch/sentinel/pkg/scheduler"
	"github.com/blockwatch/sentinel/pkg/trigger"
)

// version is overridden at link time; the teacher stamps buildinfo.GitCommit
// here instead, but this daemon has no VCS-aware build step.
var version = "dev"

func main() {
	conf := setupConfig()

	logging.SetupLogger(version, conf.Log.Level == "debug", conf.Log.Human)

	if err := os.MkdirAll(conf.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("data_dir", conf.DataDir).Msg("creating data dir")
	}

	networks, err := cfgpkg.LoadNetworks(filepath.Join(conf.ConfigDir, "networks"))
	if err != nil {
		log.Fatal().Err(err).Msg("loading networks")
	}
	monitors, err := cfgpkg.LoadMonitors(filepath.Join(conf.ConfigDir, "monitors"))
	if err != nil {
		log.Fatal().Err(err).Msg("loading monitors")
	}
	triggers, err := cfgpkg.LoadTriggers(conf.ConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("loading triggers")
	}

	repo, err := repository.New(networks, monitors, triggers)
	if err != nil {
		log.Fatal().Err(err).Msg("building repositories")
	}

	cur, err := cursor.Load(conf.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("loading cursor state")
	}
	store := blockstore.New(conf.DataDir)

	engine := filter.NewEngine()
	dispatcher := trigger.NewDispatcher(repo, buildNotifierFactory(), conf.FanOut)

	sched := scheduler.New()
	rpcTimeout := time.Duration(conf.RPCTimeoutSeconds) * time.Second
	stacks, err := createNetworkStacks(networks, rpcTimeout, engine, dispatcher, cur, store, repo, sched)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring network stacks")
	}

	logStartup(networks, conf.DataDir, conf.ConfigDir)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	shutdownCtx, cls := context.WithTimeout(context.Background(), 30*time.Second)
	defer cls()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("scheduler did not stop cleanly within shutdown window")
	}

	closeNetworkStacks(stacks)
	log.Info().Msg("shutdown complete")
}
