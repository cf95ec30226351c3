package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stemdeck/internal/logging"
	"stemdeck/internal/mockbackend"
	"stemdeck/internal/separation"
	"stemdeck/internal/stems"
	"stemdeck/internal/upload"
)

func newMockBackendCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var token string
	var setFlag string
	var steps int
	var ttl time.Duration
	var maxActive int
	var maxBytes int64
	var quiet bool

	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Run a local development separation service",
		Long: "Run an in-memory service implementing the separation API. Stereo input is\n" +
			"split into mid/side stems so the full client flow can be exercised offline.\n" +
			"Files whose name contains \"fail\" end in a failed job.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if setFlag == "" {
				setFlag = cfg.Player.StemSet
			}
			set, err := stems.ParseSet(setFlag)
			if err != nil {
				return err
			}
			logger, _, closer, err := ctx.commandLogger(cmd, false)
			if err != nil {
				return err
			}
			defer closer.Close()
			if quiet {
				logger = logging.WithLevelOverride(logger, slog.LevelWarn)
			}

			var store separation.ObjectStore
			if cfg.StorageConfigured() {
				minioStore, err := separation.NewMinioStore(cfg.Storage)
				if err != nil {
					return err
				}
				store = minioStore
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := mockbackend.New(mockbackend.Options{
				Bind:          bind,
				Token:         token,
				StemSet:       set,
				Steps:         steps,
				TTL:           ttl,
				MaxActiveJobs: maxActive,
				MaxBytes:      maxBytes,
				Store:         store,
				Logger:        logger,
			})
			addr, err := server.Start(runCtx)
			if err != nil {
				return err
			}
			defer server.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Mock separation service listening on http://%s (%s stems)\n", addr, set)
			if token != "" {
				fmt.Fprintln(out, "Bearer token required; run `stemdeck login --token` with the same value")
			}
			<-runCtx.Done()
			logger.Info("mock separation service shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1:8750", "Listen address")
	cmd.Flags().StringVar(&token, "token", "", "Require this bearer token")
	cmd.Flags().StringVar(&setFlag, "stems", "", "Stem set to produce (two or four)")
	cmd.Flags().IntVar(&steps, "steps", 3, "Processing polls before a job completes")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*time.Minute, "Job expiry; expired jobs answer 404")
	cmd.Flags().IntVar(&maxActive, "max-active", 0, "Rate limit once this many jobs are active (0 disables)")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", upload.DefaultMaxBytes, "Upload size limit")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Only log warnings and errors")
	return cmd
}
