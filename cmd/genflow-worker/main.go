package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/calrock27/genflow/pkg/config"
	"github.com/calrock27/genflow/pkg/host"
	"github.com/calrock27/genflow/pkg/log"
	"github.com/calrock27/genflow/pkg/registry"
	"github.com/calrock27/genflow/pkg/session"
)

func main() {
	cmd := &cli.Command{
		Name:                  "genflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Run a generative flow definition",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "flow",
				Aliases:  []string{"f"},
				Usage:    "Path to the flow definition YAML file",
				Required: true,
				Sources:  cli.EnvVars("GENFLOW_FLOW"),
			},
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory for persisted chat sessions",
				Value:   "./data",
				Sources: cli.EnvVars("GENFLOW_DATA_DIR"),
			},
			&cli.BoolFlag{
				Name:    "persist-sessions",
				Usage:   "Store chat sessions in SQLite instead of memory",
				Sources: cli.EnvVars("GENFLOW_PERSIST_SESSIONS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("genflow-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing genflow worker")

			flow, err := config.LoadFlow(command.String("flow"))
			if err != nil {
				return err
			}

			var sessions session.Store = session.NewMemoryStore()

			if command.Bool("persist-sessions") {
				sqliteStore, err := session.NewSQLiteStore(command.String("data-dir"))
				if err != nil {
					return err
				}

				defer func() {
					if err := sqliteStore.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close session store", "error", err)
					}
				}()

				sessions = sqliteStore
			}

			reg := registry.NewRegistry(logger)
			reg.RegisterDefaultNodes(sessions)

			flowHost, err := host.New(ctx, flow, reg, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := flowHost.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close flow host", "error", err)
				}
			}()

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := flowHost.Run(runCtx); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Flow running", "flow", flow.Name, "nodes", len(flow.Nodes))

			<-runCtx.Done()

			logger.InfoContext(ctx, "Shutting down")

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
