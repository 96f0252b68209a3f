package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/i2y/reportbridge/internal/domain"
	"github.com/i2y/reportbridge/internal/usecase"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "resolve <key>",
		Short:   "Resolve a logical operation key to a concrete route",
		Example: "  reportctl resolve invoices.get --base-url http://pos:8080/api",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}
			route, err := a.Resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), route)
		},
	}
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Resolve every known operation key and print the route table",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tMETHOD\tPATH\tSTRATEGY")
			var failed int
			for _, key := range a.Resolver.Catalog().Keys() {
				route, err := a.Resolver.Resolve(cmd.Context(), key)
				if err != nil {
					// A missing route is reported in the table; a broken document aborts.
					if !errors.Is(err, domain.ErrOperationNotFound) {
						return err
					}
					failed++
					fmt.Fprintf(tw, "%s\t-\t(not found)\t-\n", key)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", route.Key, route.Method, route.Path, route.Strategy)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d operation(s) have no matching route\n", failed)
			}
			return nil
		},
	}
}

func addFilterFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("from", "", "Start date (YYYY-MM-DD)")
	flags.String("to", "", "End date (YYYY-MM-DD)")
	flags.String("cashier", "", "Cashier name")
	flags.String("status", "", "Document status")
}

func filterFromFlags(cmd *cobra.Command) usecase.ReportFilter {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	cashier, _ := cmd.Flags().GetString("cashier")
	status, _ := cmd.Flags().GetString("status")
	return usecase.ReportFilter{DateFrom: from, DateTo: to, Cashier: cashier, Status: status}
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <name>",
		Short: "Fetch a report and print its rows as JSON",
		Long:  "Fetch a report and print its rows as JSON. Reports: " + strings.Join(usecase.ReportNames(), ", ") + ".",
		Example: strings.TrimSpace(`  reportctl report invoices --from 2024-01-01 --to 2024-01-31 --status Activas
  reportctl report sales --from 2024-02-01 --cashier Maria`),
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}
			rows, err := a.Reports.Run(cmd.Context(), args[0], filterFromFlags(cmd))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func newPDFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pdf <name>",
		Short:   "Download the PDF variant of a report",
		Example: "  reportctl pdf invoices --from 2024-01-01 --to 2024-01-31 -o invoices.pdf",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if strings.TrimSpace(out) == "" {
				return newUsageError("--output is required")
			}

			a, err := build(cmd)
			if err != nil {
				return err
			}
			data, err := a.Reports.RunPDF(cmd.Context(), args[0], filterFromFlags(cmd))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), out)
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "File to write the PDF to")
	return cmd
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return newUsageError(fmt.Sprintf("%s expects %d argument(s), got %d\n\n%s", cmd.Name(), n, len(args), cmd.UsageString()))
		}
		return nil
	}
}
