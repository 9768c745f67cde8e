package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orunio/climate/backend/internal/aggregator"
	"github.com/orunio/climate/backend/internal/contracts"
)

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [region...]",
	Short: "지역별 기후 프로파일 수집",
	Long: `지정한 지역에 대해 모든(또는 선택한) 데이터 소스를 조회하고
소스별 결과(available / skipped / failed)를 보고합니다.

지역을 지정하지 않으면 모든 파일럿 사이트를 수집합니다.

Examples:
  go run ./cmd/orun aggregate kenya
  go run ./cmd/orun aggregate kenya nigeria --sources nasa_power,world_bank
  go run ./cmd/orun aggregate makueni_kenya --days 90 --json
  go run ./cmd/orun aggregate niger_delta --save --publish`,
	RunE: runAggregate,
}

type aggregateFlags struct {
	sources     []string
	concurrency int
	days        int
	json        bool
	save        bool
	publish     bool
}

var aggFlags aggregateFlags

func init() {
	rootCmd.AddCommand(aggregateCmd)
	addAggregateFlags(aggregateCmd, &aggFlags)
}

// addAggregateFlags registers the flags shared by aggregate and pilots
func addAggregateFlags(cmd *cobra.Command, f *aggregateFlags) {
	cmd.Flags().StringSliceVar(&f.sources, "sources", nil, "comma separated source names (default: all)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "sources in flight per region (default: AGGREGATOR_CONCURRENCY)")
	cmd.Flags().IntVar(&f.days, "days", 0, "trailing window in days (default: AGGREGATOR_DAYS_BACK)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print records as JSON")
	cmd.Flags().BoolVar(&f.save, "save", false, "persist records to PostgreSQL")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "publish records to the configured sinks")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{
		concurrency: aggFlags.concurrency,
		persistence: aggFlags.save || aggFlags.publish,
	})
	if err != nil {
		return err
	}
	defer a.close()

	var targets []contracts.RegionProfile
	if len(args) == 0 {
		targets = a.table.Pilots()
	}
	for _, name := range args {
		region, err := a.table.Lookup(name)
		if err != nil {
			return fmt.Errorf("%w (known: %s)", err, strings.Join(a.table.Keys(), ", "))
		}
		targets = append(targets, region)
	}

	return aggregateRegions(ctx, a, targets, aggFlags)
}

// aggregateRegions runs the regions sequentially and reports each record
func aggregateRegions(ctx context.Context, a *app, targets []contracts.RegionProfile, f aggregateFlags) error {
	if err := checkSources(a.agg, f.sources); err != nil {
		return err
	}

	if !f.json {
		PrintInfo(fmt.Sprintf("Aggregating %d region(s) with %s", len(targets), sourcesLabel(f.sources)))
		if missing := a.reg.MissingKeys(); len(missing) > 0 {
			PrintInfo(fmt.Sprintf("No credentials for: %s (run 'orun regions --keys')", strings.Join(missing, ", ")))
		}
	}

	records := make([]contracts.AggregateRecord, 0, len(targets))
	var outErrs []error
	for _, region := range targets {
		rec := a.agg.Run(ctx, aggregator.Request{
			Region: region,
			Names:  f.sources,
			Days:   f.days,
		})
		records = append(records, rec)

		if !f.json {
			PrintRecord(rec)
		}
		if err := a.output(ctx, rec, f); err != nil {
			outErrs = append(outErrs, err)
		}
	}

	if f.json {
		if err := PrintJSON(records); err != nil {
			return err
		}
	} else {
		fmt.Println()
		PrintSuccess(fmt.Sprintf("%d region(s) aggregated", len(records)))
	}

	return errors.Join(outErrs...)
}

// output saves and publishes a record when requested
func (a *app) output(ctx context.Context, rec contracts.AggregateRecord, f aggregateFlags) error {
	var errs []error
	if f.save {
		if a.store == nil {
			errs = append(errs, fmt.Errorf("--save requires DATABASE_URL"))
		} else if err := a.store.SaveAggregate(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if f.publish {
		if a.sinks.Len() == 0 {
			errs = append(errs, fmt.Errorf("--publish requires KAFKA_ENABLED or INFLUX_ENABLED"))
		} else if err := a.sinks.PublishRecord(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkSources rejects names the aggregator does not know before any call
func checkSources(agg *aggregator.Aggregator, names []string) error {
	known := make(map[string]bool)
	for _, n := range agg.Names() {
		known[n] = true
	}
	for _, n := range names {
		if !known[n] {
			return fmt.Errorf("unknown source %q (known: %s)", n, strings.Join(agg.Names(), ", "))
		}
	}
	return nil
}

func sourcesLabel(names []string) string {
	if len(names) == 0 {
		return "all sources"
	}
	return strings.Join(names, ", ")
}
