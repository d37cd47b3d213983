package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/outpost/ack"
	"github.com/pithecene-io/outpost/agent"
	"github.com/pithecene-io/outpost/asset"
	"github.com/pithecene-io/outpost/c2"
	"github.com/pithecene-io/outpost/iox"
	"github.com/pithecene-io/outpost/log"
	"github.com/pithecene-io/outpost/metrics"
	"github.com/pithecene-io/outpost/types"
)

// RunCommand returns the run command, the long-running agent entrypoint.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the agent: heartbeat the controller and apply asset updates",
		Flags: []cli.Flag{
			ConfigFlag,
			AssetDirFlag,
			&cli.StringFlag{
				Name:  "agent-id",
				Usage: "Agent identifier (default: hostname)",
			},
			&cli.StringFlag{
				Name:    "c2-url",
				Usage:   "Controller heartbeat URL",
				EnvVars: []string{"OUTPOST_C2_URL"},
			},
			&cli.StringFlag{
				Name:  "acknowledge-url",
				Usage: "Controller acknowledgement URL (default: c2 URL)",
			},
			&cli.StringFlag{
				Name:  "encoding",
				Usage: "Wire encoding: json or msgpack",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if err := cfg.Validate(true); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), exitConfigError)
	}

	meta := &types.AgentMeta{AgentID: cfg.Agent.Identifier, AgentClass: cfg.Agent.Class}
	logger, err := log.NewLoggerWithLevel(meta, cfg.Log.Level)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardErr(logger.Sync)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Sugar().Infof("received %s, shutting down", sig)
		cancel()
	}()

	collector := metrics.NewCollector(cfg.Agent.Identifier, cfg.C2.Encoding)

	client, err := c2.New(c2.Config{
		URL:            cfg.C2.URL,
		AcknowledgeURL: cfg.C2.AcknowledgeURL,
		AgentID:        cfg.Agent.Identifier,
		AgentClass:     cfg.Agent.Class,
		Encoding:       c2.Encoding(cfg.C2.Encoding),
		Headers:        cfg.C2.Headers,
		Timeout:        cfg.C2.Timeout.Duration,
		Retries:        *cfg.C2.Retries,
	}, c2.WithLogger(logger.Named("c2")))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid c2 config: %v", err), exitConfigError)
	}
	defer iox.DiscardClose(client)

	fetcher, err := newFetcher(ctx, cfg, cfg.C2.URL)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid fetch config: %v", err), exitConfigError)
	}
	store, err := asset.NewStore(cfg.AssetRoot())
	if err != nil {
		return fmt.Errorf("failed to open asset root: %w", err)
	}

	synchronizer := asset.NewSynchronizer(store, fetcher,
		asset.WithFetchTimeout(cfg.Fetch.Timeout.Duration),
		asset.WithLogger(logger.Named("asset")),
		asset.WithMetrics(collector),
	)
	dispatcher := c2.NewDispatcher(logger.Named("dispatch"))
	dispatcher.Register(types.OperationUpdate, types.OperandAsset, c2.HandlerFunc(synchronizer.Apply))

	reporter := ack.NewReporter(client,
		ack.WithLogger(logger.Named("ack")),
		ack.WithMetrics(collector),
	)

	opts := []agent.Option{agent.WithLogger(logger.Named("agent")), agent.WithMetrics(collector)}
	notifier, err := newNotifier(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid adapter config: %v", err), exitConfigError)
	}
	if notifier != nil {
		defer iox.DiscardClose(notifier)
		opts = append(opts, agent.WithNotifier(notifier))
	}

	a := agent.New(agent.Config{
		AgentID:         cfg.Agent.Identifier,
		HeartbeatPeriod: cfg.C2.HeartbeatPeriod.Duration,
		QueueSize:       cfg.C2.QueueSize,
	}, client, dispatcher, reporter, opts...)

	logger.Info("agent starting", map[string]any{
		"version":    types.Version,
		"c2_url":     cfg.C2.URL,
		"asset_root": store.Root(),
		"encoding":   cfg.C2.Encoding,
		"adapter":    cfg.Adapter.Type,
	})

	runErr := a.Run(ctx)
	logSnapshot(logger, collector.Snapshot(), reporter.Pending())
	if runErr != nil {
		return fmt.Errorf("agent failed: %w", runErr)
	}
	return nil
}

func logSnapshot(logger *log.Logger, snap metrics.Snapshot, pendingAcks int) {
	logger.Info("agent stopped", map[string]any{
		"heartbeats_sent":     snap.HeartbeatsSent,
		"heartbeats_failed":   snap.HeartbeatsFailed,
		"batches_processed":   snap.BatchesProcessed,
		"batches_dropped":     snap.BatchesDropped,
		"operations_received": snap.OperationsReceived,
		"outcomes_by_state":   snap.OutcomesByState,
		"fetch_failures":      snap.FetchFailures,
		"write_failures":      snap.WriteFailures,
		"bytes_written":       snap.BytesWritten,
		"acks_sent":           snap.AcksSent,
		"acks_failed":         snap.AcksFailed,
		"acks_dropped":        snap.AcksDropped,
		"acks_pending":        pendingAcks,
		"notify_success":      snap.NotifySuccess,
		"notify_failure":      snap.NotifyFailure,
	})
	if pendingAcks > 0 {
		logger.Sugar().Warnf("%d acknowledgements undelivered at shutdown", pendingAcks)
	}
}
