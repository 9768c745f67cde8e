package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/quota"
)

// quotaCmd represents the quota command
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "프로바이더별 호출 한도 상태",
	Long: `프로바이더별 남은 호출 수, 리셋 시각, 마지막 호출 시각과
마스킹된 API 키를 출력합니다.

한도는 프로세스 메모리에만 존재하므로 --warm 으로 지역 하나를 먼저
수집하면 실제 응답 헤더에서 읽은 값이 표시됩니다.

Examples:
  go run ./cmd/orun quota
  go run ./cmd/orun quota --warm kenya`,
	Args: cobra.NoArgs,
	RunE: runQuota,
}

var quotaWarm string

func init() {
	rootCmd.AddCommand(quotaCmd)

	quotaCmd.Flags().StringVar(&quotaWarm, "warm", "", "aggregate this region first")
}

func runQuota(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if quotaWarm != "" {
		region, err := a.table.Lookup(quotaWarm)
		if err != nil {
			return err
		}
		rec := a.agg.Aggregate(ctx, region, nil)
		PrintInfo(fmt.Sprintf("Warm-up %s: %d available, %d skipped, %d failed",
			region.Key, len(rec.Available()), len(rec.Skipped()), len(rec.Failed())))
	}

	printQuota(a.tracker.Snapshot(), a, time.Now())
	return nil
}

func printQuota(states []quota.State, a *app, now time.Time) {
	fmt.Println()
	widths := []int{14, 6, 12, 20, 20, 14}
	PrintTableHeader([]string{"PROVIDER", "CALLS", "REMAINING", "RESET", "LAST CALL", "KEY"}, widths)

	for _, s := range states {
		remaining := "-"
		if s.Limit > 0 || s.Calls > 0 {
			remaining = strconv.Itoa(s.Remaining)
			if s.Limit > 0 {
				remaining += "/" + strconv.Itoa(s.Limit)
			}
		}
		if s.Exhausted(now) {
			remaining += " ⛔"
		}

		key := "-"
		if p, ok := a.reg.Get(s.Provider); ok && p.KeyRequired {
			key = "(missing)"
			if p.HasKey() {
				key = gateway.MaskKey(p.APIKey)
			}
		}

		PrintTableRow([]string{
			s.Provider,
			strconv.Itoa(s.Calls),
			remaining,
			timeOrDash(s.ResetAt),
			timeOrDash(s.LastCall),
			key,
		}, widths)
	}
}

func timeOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
