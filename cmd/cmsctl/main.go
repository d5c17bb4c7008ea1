// Command cmsctl runs maintenance tasks against the Love In Action CMS with
// the system API token.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"loveinaction/internal/cms"
	"loveinaction/internal/config"
)

var (
	verbose  bool
	cmsURL   string
	apiToken string
	timeout  time.Duration
	asJSON   bool

	cfg    *config.Config
	logger *zap.Logger
	client *cms.Client
)

var rootCmd = &cobra.Command{
	Use:   "cmsctl",
	Short: "Maintenance tasks for the Love In Action CMS",
	Long: `cmsctl seeds content, manages child images, repairs sponsor relations
and exports sponsorship records.

The CMS URL and token default to the same environment variables the server
reads (NEXT_PUBLIC_STRAPI_URL, STRAPI_API_TOKEN).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg = config.Load()
		if cmsURL == "" {
			cmsURL = cfg.StrapiURL
		}
		if apiToken == "" {
			apiToken = cfg.StrapiAPIToken
		}
		if apiToken == "" {
			return fmt.Errorf("no API token: set STRAPI_API_TOKEN or pass --token")
		}

		client = cms.New(cmsURL, cms.WithAPIToken(apiToken), cms.WithTimeout(timeout), cms.WithObserver(logCMSCall))
		logger.Debug("CMS client ready", zap.String("url", client.BaseURL()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cmsURL, "cms-url", "", "CMS base URL (default: from environment)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "CMS API token (default: STRAPI_API_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout per CMS request")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(uploadImagesCmd)
	rootCmd.AddCommand(linkImagesCmd)
	rootCmd.AddCommand(checkDuplicatesCmd)
	rootCmd.AddCommand(relationsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(fixPermissionsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// logCMSCall traces every CMS round trip at debug level
func logCMSCall(collection, method string, status int, elapsed time.Duration) {
	logger.Debug("CMS request",
		zap.String("collection", collection),
		zap.String("method", method),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	)
}

// printResult writes v as indented JSON when --json is set, otherwise runs text
func printResult(w io.Writer, v any, text func(io.Writer)) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
