package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/index"
	"github.com/orunio/climate/backend/internal/registry"
)

// impactCmd represents the impact command
var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "위성 지수 기반 개입 효과 추정",
	Long: `처리(treatment) 시계열과 대조(control) 시계열을 비교해
효과 크기, 95% 신뢰구간, p-value 를 계산합니다 (Welch t-test).

시계열은 JSON 파일로 주거나 Sentinel Hub 에서 직접 가져옵니다.
키가 없으면 --sample 로 합성 시계열을 사용할 수 있습니다 (결과는 synthetic 으로 표시).

Examples:
  go run ./cmd/orun impact --treatment makueni.json --control baseline.json
  go run ./cmd/orun impact --region makueni_kenya --control-region kenya --index NDVI --days 180
  go run ./cmd/orun impact --region niger_delta --control-region nigeria --sample`,
	Args: cobra.NoArgs,
	RunE: runImpact,
}

var (
	impactTreatmentFile string
	impactControlFile   string
	impactRegion        string
	impactControlRegion string
	impactIndex         string
	impactDays          int
	impactMaxCloud      float64
	impactSample        bool
	impactJSON          bool
)

const (
	sampleSeed            = 42
	sampleTreatmentOffset = 0.08
)

func init() {
	rootCmd.AddCommand(impactCmd)

	impactCmd.Flags().StringVar(&impactTreatmentFile, "treatment", "", "treatment series JSON file")
	impactCmd.Flags().StringVar(&impactControlFile, "control", "", "control series JSON file")
	impactCmd.Flags().StringVar(&impactRegion, "region", "", "treatment region (fetched from Sentinel Hub)")
	impactCmd.Flags().StringVar(&impactControlRegion, "control-region", "", "control region (fetched from Sentinel Hub)")
	impactCmd.Flags().StringVar(&impactIndex, "index", "NDVI", "satellite index (NDVI|NDWI|EVI)")
	impactCmd.Flags().IntVar(&impactDays, "days", 180, "trailing window in days")
	impactCmd.Flags().Float64Var(&impactMaxCloud, "max-cloud", index.DefaultMaxCloudCover, "drop observations at or above this cloud cover %")
	impactCmd.Flags().BoolVar(&impactSample, "sample", false, "use synthetic series when no Sentinel Hub key is configured")
	impactCmd.Flags().BoolVar(&impactJSON, "json", false, "print the estimate as JSON")
}

func runImpact(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		treatment, control contracts.IndexTimeSeries
		synthetic          bool
		err                error
	)

	switch {
	case impactTreatmentFile != "" || impactControlFile != "":
		if impactTreatmentFile == "" || impactControlFile == "" {
			return errors.New("--treatment and --control must be given together")
		}
		if treatment, err = readSeries(impactTreatmentFile); err != nil {
			return err
		}
		if control, err = readSeries(impactControlFile); err != nil {
			return err
		}
	case impactRegion != "" && impactControlRegion != "":
		treatment, control, synthetic, err = fetchSeriesPair(ctx)
		if err != nil {
			return err
		}
	default:
		return errors.New("give --treatment/--control files or --region/--control-region")
	}

	treatment = index.FilterCloudCover(treatment, impactMaxCloud)
	control = index.FilterCloudCover(control, impactMaxCloud)

	// Summaries also validate chronological order
	ts, err := index.Summarize(treatment)
	if err != nil {
		return fmt.Errorf("treatment series: %w", err)
	}
	cs, err := index.Summarize(control)
	if err != nil {
		return fmt.Errorf("control series: %w", err)
	}

	est := index.EstimateImpact(treatment, control)

	if impactJSON {
		return PrintJSON(map[string]interface{}{
			"treatment": ts,
			"control":   cs,
			"estimate":  est,
			"synthetic": synthetic,
		})
	}

	printImpact(ts, cs, est, synthetic)
	return nil
}

// fetchSeriesPair pulls both regions' series from Sentinel Hub, or samples them
func fetchSeriesPair(ctx context.Context) (contracts.IndexTimeSeries, contracts.IndexTimeSeries, bool, error) {
	var none contracts.IndexTimeSeries

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return none, none, false, err
	}
	defer a.close()

	tRegion, err := a.table.Lookup(impactRegion)
	if err != nil {
		return none, none, false, err
	}
	cRegion, err := a.table.Lookup(impactControlRegion)
	if err != nil {
		return none, none, false, err
	}

	r := contracts.TrailingDays(time.Now(), impactDays)

	if !a.gw.HasCredentials(registry.SentinelHub) {
		if !impactSample {
			k, _ := registry.KeyInstructions(registry.SentinelHub)
			return none, none, false, fmt.Errorf("%s not configured: set %s (see %s) or pass --sample",
				registry.SentinelHub, k.EnvVar, k.URL)
		}
		PrintWarning("SENTINEL_HUB_API_KEY not set: using SYNTHETIC sample series")
		return index.SampleSeries(impactIndex, r, sampleSeed, sampleTreatmentOffset),
			index.SampleSeries(impactIndex, r, sampleSeed+1, 0),
			true, nil
	}

	fetch := func(region contracts.RegionProfile) (contracts.IndexTimeSeries, error) {
		o := a.sent.FetchIndexSeries(ctx, contracts.Query{Region: region, Range: r}, impactIndex)
		if !o.OK() {
			return none, fmt.Errorf("%s %s series: %s", region.Key, impactIndex, o)
		}
		s, ok := o.Data.(contracts.IndexTimeSeries)
		if !ok {
			return none, fmt.Errorf("%s %s series: unexpected data %T", region.Key, impactIndex, o.Data)
		}
		return s, nil
	}

	treatment, err := fetch(tRegion)
	if err != nil {
		return none, none, false, err
	}
	control, err := fetch(cRegion)
	if err != nil {
		return none, none, false, err
	}
	return treatment, control, false, nil
}

func readSeries(path string) (contracts.IndexTimeSeries, error) {
	var s contracts.IndexTimeSeries
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func printImpact(ts, cs contracts.IndexSummary, est contracts.ImpactEstimate, synthetic bool) {
	fmt.Println()
	PrintDoubleSeparator()
	title := fmt.Sprintf("  Impact estimate (%s)", ts.Index)
	if synthetic {
		title += "  [SYNTHETIC]"
	}
	fmt.Println(title)
	PrintSeparator()

	widths := []int{10, 6, 9, 9, 9, 9, 10}
	PrintTableHeader([]string{"SERIES", "N", "MEAN", "STDDEV", "MIN", "MAX", "TREND"}, widths)
	for _, row := range []struct {
		label string
		s     contracts.IndexSummary
	}{{"treatment", ts}, {"control", cs}} {
		PrintTableRow([]string{
			row.label,
			fmt.Sprintf("%d", row.s.Count),
			fmt.Sprintf("%.4f", row.s.Mean),
			fmt.Sprintf("%.4f", row.s.StdDev),
			fmt.Sprintf("%.4f", row.s.Min),
			fmt.Sprintf("%.4f", row.s.Max),
			fmt.Sprintf("%+.5f", row.s.TrendSlope),
		}, widths)
	}
	PrintSeparator()

	if est.InsufficientData {
		PrintWarning("Insufficient data: each series needs at least 2 observations")
		return
	}

	PrintKeyValue("Effect", fmt.Sprintf("%+.4f", est.Effect), 10)
	PrintKeyValue(fmt.Sprintf("%.0f%% CI", est.Confidence*100), fmt.Sprintf("[%.4f, %.4f]", est.CILower, est.CIUpper), 10)
	PrintKeyValue("p-value", fmt.Sprintf("%.4g", est.PValue), 10)
	PrintKeyValue("df", fmt.Sprintf("%.2f", est.DegreesOfFreedom), 10)

	if est.Significant {
		PrintSuccess("Statistically significant difference")
	} else {
		PrintInfo("No statistically significant difference")
	}
}
