package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// pilotsCmd represents the pilots command
var pilotsCmd = &cobra.Command{
	Use:   "pilots",
	Short: "모든 파일럿 사이트 수집",
	Long: `ORUN 파일럿 사이트(Makueni, Niger Delta, Okavango)를 차례로 수집합니다.
같은 프로바이더 호출 사이에는 AGGREGATOR_INTER_CALL_DELAY 만큼 간격을 둡니다.

Example:
  go run ./cmd/orun pilots
  go run ./cmd/orun pilots --sources nasa_power,noaa --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, appOptions{
			concurrency: pilotFlags.concurrency,
			persistence: pilotFlags.save || pilotFlags.publish,
		})
		if err != nil {
			return err
		}
		defer a.close()

		return aggregateRegions(ctx, a, a.table.Pilots(), pilotFlags)
	},
}

var pilotFlags aggregateFlags

func init() {
	rootCmd.AddCommand(pilotsCmd)
	addAggregateFlags(pilotsCmd, &pilotFlags)
}
