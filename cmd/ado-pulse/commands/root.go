package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ado-pulse/internal/azdo"
	"ado-pulse/internal/config"
	"ado-pulse/internal/dataset"
	"ado-pulse/internal/engine"
	"ado-pulse/internal/logging"
	"ado-pulse/internal/web"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose     bool
	addr        string
	openBrowser bool

	cfg *config.AppConfig
	eng *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "ado-pulse",
	Short: "ado-pulse serves tag-filtered work-item and test-result analytics",
	Long: `A dashboard engine that retrieves tag-filtered work items and test results
from an Azure DevOps project, normalizes them into one dataset and serves
summary metrics, trends and search over a JSON API.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		store := dataset.NewStore()
		eng = engine.New(azdo.NewClient(cfg.Tracker), store, engine.Options{
			Tag:          cfg.SearchTag,
			MatchMode:    cfg.MatchMode,
			ItemTypes:    cfg.ItemTypes,
			ClosedStates: cfg.ClosedStates,
			CacheDir:     cfg.CacheDir,
		})
		if err := eng.LoadCache(); err != nil {
			log.Warn().Err(err).Msg("Failed to load cached dataset, starting empty")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("tag", cfg.SearchTag).
			Msg("ado-pulse starting")
	},
	Run: func(cmd *cobra.Command, args []string) {
		listenAddr := cfg.ListenAddr
		if addr != "" {
			listenAddr = addr
		}
		server := web.NewServer(eng, listenAddr)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Shutdown did not complete cleanly")
			}
		}()

		if openBrowser {
			go func() {
				url := fmt.Sprintf("http://localhost%s/api/summary", listenAddr)
				if err := browser.OpenURL(url); err != nil {
					log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
				}
			}()
		}

		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		result, err := eng.Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "refreshed: %d records, %d malformed, at %s\n",
			result.Succeeded, result.Failed, result.Timestamp.Format(time.RFC3339))
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	rootCmd.Flags().BoolVar(&openBrowser, "open", false, "open the dashboard in a browser after start")
	rootCmd.AddCommand(refreshCmd)
}
