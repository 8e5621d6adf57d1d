package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geodir/internal/enrich"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode location addresses",
}

var geocodeBacklogCmd = &cobra.Command{
	Use:   "backlog",
	Short: "Geocode every location with an address",
	Long: "Re-geocodes all locations (or only those without coordinates) one at a time, honoring the provider's " +
		"minimum request interval. Individual failures never stop the run; the command exits non-zero if any " +
		"record failed or the run was interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		missingOnly, _ := cmd.Flags().GetBool("missing-only")
		reportPath, _ := cmd.Flags().GetString("report")

		pool, store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		gc, err := newGeocoder(cfg.Geocode, pool, cfg.Enrich.MinInterval())
		if err != nil {
			return err
		}
		p := newPipeline(cfg.Enrich, gc, store)

		out := cmd.OutOrStdout()
		var bar *progressbar.ProgressBar
		sum, runErr := p.EnrichBacklog(ctx, enrich.BacklogOptions{
			MissingOnly: missingOnly,
			OnStart: func(total int) {
				if isatty.IsTerminal(os.Stderr.Fd()) {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription("Geocoding"),
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionShowCount(),
						progressbar.OptionClearOnFinish(),
					)
				}
			},
			OnOutcome: func(o enrich.Outcome) {
				if bar != nil {
					_ = bar.Clear()
				}
				printOutcome(out, o)
				if bar != nil {
					_ = bar.Add(1)
				}
			},
		})
		if bar != nil {
			_ = bar.Finish()
		}

		if sum != nil {
			printSummary(out, sum)
			if reportPath != "" {
				if err := enrich.WriteReport(reportPath, sum); err != nil {
					zap.L().Error("write backlog report", zap.String("path", reportPath), zap.Error(err))
				} else {
					fmt.Fprintf(out, "Report written to %s\n", reportPath)
				}
			}
		}
		return backlogErr(sum, runErr)
	},
}

var geocodeResolveCmd = &cobra.Command{
	Use:   "resolve <address>",
	Short: "Resolve one address without touching the database",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := newGeocoder(cfg.Geocode, nil, 0)
		if err != nil {
			return err
		}
		res, err := gc.Resolve(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.6f,%.6f\t%s\t%s\t%s\n",
			res.Point.Lat, res.Point.Lon, res.Provider, res.Quality, res.DisplayName)
		return nil
	},
}

// printOutcome writes one line per processed record.
func printOutcome(w io.Writer, o enrich.Outcome) {
	switch o.Status {
	case enrich.StatusSucceeded:
		fmt.Fprintf(w, "ok    %6d  %s  lat=%.6f lon=%.6f\n", o.LocationID, o.Name, o.Point.Lat, o.Point.Lon)
	case enrich.StatusSkipped:
		fmt.Fprintf(w, "skip  %6d  %s  %s\n", o.LocationID, o.Name, o.Reason)
	default:
		fmt.Fprintf(w, "FAIL  %6d  %s  %s: %s\n", o.LocationID, o.Name, o.Kind, o.Reason)
	}
}

func printSummary(w io.Writer, s *enrich.Summary) {
	fmt.Fprintf(w, "\nRun %s: %s in %s\n", s.RunID, s.Status, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  total %d, attempted %d, succeeded %d, skipped %d, failed %d\n",
		s.Total, s.Attempted, s.Succeeded, s.Skipped, s.Failed)
}

// backlogErr turns a run into the command's exit status.
func backlogErr(s *enrich.Summary, err error) error {
	if err != nil {
		return err
	}
	if s.Failed > 0 {
		return eris.Errorf("geocode backlog: %d of %d attempted records failed", s.Failed, s.Attempted)
	}
	return nil
}

func init() {
	geocodeBacklogCmd.Flags().Bool("missing-only", false, "only geocode locations without coordinates")
	geocodeBacklogCmd.Flags().String("report", "", "write an xlsx report to this path")
	geocodeCmd.AddCommand(geocodeBacklogCmd, geocodeResolveCmd)
	rootCmd.AddCommand(geocodeCmd)
}
