package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/regions"
	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/pkg/config"
)

// regionsCmd represents the regions command
var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "지역 테이블 조회",
	Long: `수집 가능한 국가 및 파일럿 사이트 목록을 출력합니다.
--keys 플래그로 API 키 발급 방법도 함께 출력합니다.

Examples:
  go run ./cmd/orun regions
  go run ./cmd/orun regions --kind pilot
  go run ./cmd/orun regions --keys`,
	Args: cobra.NoArgs,
	RunE: runRegions,
}

var (
	regionsKind string
	regionsKeys bool
)

func init() {
	rootCmd.AddCommand(regionsCmd)

	regionsCmd.Flags().StringVar(&regionsKind, "kind", "", "filter by kind (country|pilot)")
	regionsCmd.Flags().BoolVar(&regionsKeys, "keys", false, "print API key instructions")
}

func runRegions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	table, err := regions.Load(cfg.Aggregator.RegionsFile)
	if err != nil {
		return err
	}

	var list []contracts.RegionProfile
	switch contracts.RegionKind(regionsKind) {
	case "":
		list = table.List()
	case contracts.RegionCountry:
		list = table.Countries()
	case contracts.RegionPilot:
		list = table.Pilots()
	default:
		return fmt.Errorf("unknown kind %q (country|pilot)", regionsKind)
	}

	fmt.Println()
	widths := []int{16, 22, 8, 4, 20}
	PrintTableHeader([]string{"KEY", "NAME", "KIND", "CC", "LAT/LON"}, widths)
	for _, r := range list {
		PrintTableRow([]string{
			r.Key,
			r.Name,
			string(r.Kind),
			r.CountryCode,
			fmt.Sprintf("%.4f, %.4f", r.Point.Lat, r.Point.Lon),
		}, widths)
	}
	fmt.Printf("\n%d region(s)\n", len(list))

	if regionsKeys {
		printKeyInstructions(registry.FromConfig(cfg))
	}
	return nil
}

// printKeyInstructions lists how to obtain each provider credential
func printKeyInstructions(reg *registry.Registry) {
	for _, p := range reg.All() {
		if !p.KeyRequired {
			continue
		}
		k, ok := registry.KeyInstructions(p.Name)
		if !ok {
			continue
		}

		fmt.Println()
		PrintDoubleSeparator()
		state := "❌ not configured"
		if p.HasKey() {
			state = "✅ configured"
		}
		fmt.Printf("  %s  %s\n", strings.ToUpper(p.Name), state)
		PrintSeparator()
		PrintKeyValue("Env", k.EnvVar, 9)
		PrintKeyValue("Sign up", k.URL, 9)
		PrintKeyValue("Free tier", k.FreeTier, 9)
		PrintKeyValue("Use case", k.UseCase, 9)
		PrintList(k.Instructions)
	}
}
