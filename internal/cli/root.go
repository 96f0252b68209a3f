package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i2y/reportbridge/configs"
	"github.com/i2y/reportbridge/internal/app"
)

// ErrUsage matches command-line usage errors.
var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// Execute runs the reportctl CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reportctl",
		Short:         "Resolve and call report routes from a service's API document",
		Long:          "reportctl reads the backend's OpenAPI document, resolves logical report operations to concrete routes and fetches report rows or PDFs.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})

	flags := cmd.PersistentFlags()
	flags.String("base-url", "", "API base URL (overrides REPORTBRIDGE_API_BASE_URL)")
	flags.String("document", "", "API document URL, file or github:// location (overrides REPORTBRIDGE_DOCUMENT_URL)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging output")

	for _, sub := range []*cobra.Command{newResolveCmd(), newRoutesCmd(), newReportCmd(), newPDFCmd()} {
		sub.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
			return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
		})
		cmd.AddCommand(sub)
	}
	return cmd
}

// build loads configuration, applies flag overrides and wires the components.
func build(cmd *cobra.Command) (*app.App, error) {
	baseURL, _ := cmd.Flags().GetString("base-url")
	document, _ := cmd.Flags().GetString("document")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := configs.Load(
		configs.WithAPIBaseURL(strings.TrimSpace(baseURL)),
		configs.WithDocumentURL(strings.TrimSpace(document)),
	)
	if err != nil {
		return nil, err
	}

	level := cfg.ParsedLogLevel()
	if verbose {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return app.New(cfg, logger), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
