package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "orun",
	Short: "ORUN - multi-source climate data aggregation",
	Long: `ORUN Climate CLI

NASA, NASA POWER, World Bank, OpenStreetMap, Sentinel Hub, Copernicus,
NOAA 데이터를 지역 단위로 모아 하나의 기후 프로파일로 병합합니다.
키가 없는 소스는 건너뛰고(skipped), 실패한 소스는 원인과 함께 기록합니다.

Usage:
  go run ./cmd/orun [command]

Examples:
  go run ./cmd/orun regions --keys
  go run ./cmd/orun aggregate kenya --sources nasa_power,world_bank
  go run ./cmd/orun pilots
  go run ./cmd/orun impact --region makueni_kenya --control-region kenya --index NDVI
  go run ./cmd/orun api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production|test)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
