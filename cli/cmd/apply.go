package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/outpost/ack"
	"github.com/pithecene-io/outpost/asset"
	"github.com/pithecene-io/outpost/c2"
	"github.com/pithecene-io/outpost/cli/render"
	"github.com/pithecene-io/outpost/iox"
	"github.com/pithecene-io/outpost/log"
	"github.com/pithecene-io/outpost/metrics"
	"github.com/pithecene-io/outpost/types"
)

// ApplyResponse is the result of a local apply.
type ApplyResponse struct {
	OperationID  string               `json:"operation_id" yaml:"operation_id"`
	State        types.OperationState `json:"state" yaml:"state"`
	Details      string               `json:"details,omitempty" yaml:"details,omitempty"`
	File         string               `json:"file" yaml:"file"`
	AssetRoot    string               `json:"asset_root" yaml:"asset_root"`
	BytesWritten int64                `json:"bytes_written" yaml:"bytes_written"`
}

// ApplyCommand returns the apply command. It runs one "update asset"
// operation against a local asset root without contacting a controller.
func ApplyCommand() *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Apply a single asset update locally",
		Flags: []cli.Flag{
			FormatFlag,
			NoColorFlag,
			TUIFlag,
			ConfigFlag,
			AssetDirFlag,
			&cli.StringFlag{
				Name:  "file",
				Usage: "Asset path relative to the asset root",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Source URL (relative URLs need --base-url)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Rewrite the file even if the content is unchanged",
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Operation ID (default: random UUID)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Base URL for relative source URLs",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
		},
		Action: applyAction,
	}
}

func applyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for apply command", exitConfigError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if err := cfg.Validate(false); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), exitConfigError)
	}

	logger, err := log.NewLoggerWithLevel(&types.AgentMeta{AgentID: cfg.Agent.Identifier, AgentClass: cfg.Agent.Class}, cfg.Log.Level)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardErr(logger.Sync)

	fetcher, err := newFetcher(c.Context, cfg, c.String("base-url"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid fetch config: %v", err), exitConfigError)
	}
	store, err := asset.NewStore(cfg.AssetRoot())
	if err != nil {
		return fmt.Errorf("failed to open asset root: %w", err)
	}

	collector := metrics.NewCollector(cfg.Agent.Identifier, "")
	synchronizer := asset.NewSynchronizer(store, fetcher,
		asset.WithFetchTimeout(cfg.Fetch.Timeout.Duration),
		asset.WithLogger(logger.Named("asset")),
		asset.WithMetrics(collector),
	)
	dispatcher := c2.NewDispatcher(logger.Named("dispatch"))
	dispatcher.Register(types.OperationUpdate, types.OperandAsset, c2.HandlerFunc(synchronizer.Apply))

	op := operationFromFlags(c)
	outcome := dispatcher.Dispatch(c.Context, op)
	wire := ack.NewAcknowledgement(outcome)

	resp := ApplyResponse{
		OperationID:  wire.OperationID,
		State:        wire.State,
		Details:      wire.Details,
		File:         c.String("file"),
		AssetRoot:    store.Root(),
		BytesWritten: collector.Snapshot().BytesWritten,
	}
	if err := r.Render(resp); err != nil {
		return err
	}
	if resp.State == types.StateNotApplied {
		return cli.Exit("", exitNotApplied)
	}
	return nil
}

// operationFromFlags builds the operation. Unset --file or --url are left
// out of the arguments so the usual argument errors are reported.
func operationFromFlags(c *cli.Context) *types.Operation {
	id := c.String("id")
	if id == "" {
		id = uuid.NewString()
	}
	args := types.Args{}
	if c.IsSet("file") {
		args[asset.ArgFile] = c.String("file")
	}
	if c.IsSet("url") {
		args[asset.ArgURL] = c.String("url")
	}
	if c.Bool("force") {
		args[asset.ArgForceDownload] = "true"
	}
	return &types.Operation{
		ID:        id,
		Operation: types.OperationUpdate,
		Operand:   types.OperandAsset,
		Args:      args,
	}
}
