package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/orunio/climate/backend/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const detailWidth = 60

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintRecord prints one region's aggregate report
func PrintRecord(rec contracts.AggregateRecord) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s (%s)\n", rec.Region.Name, rec.Region.Key)
	PrintSeparator()
	PrintKeyValue("Run", rec.RunID, 9)
	PrintKeyValue("Location", fmt.Sprintf("%.4f, %.4f", rec.Region.Point.Lat, rec.Region.Point.Lon), 9)
	PrintKeyValue("Range", fmt.Sprintf("%s ~ %s",
		rec.Range.From.Format("2006-01-02"), rec.Range.To.Format("2006-01-02")), 9)
	if rec.Region.Focus != "" {
		PrintKeyValue("Focus", rec.Region.Focus, 9)
	}
	PrintSeparator()

	widths := []int{14, 10, detailWidth}
	PrintTableHeader([]string{"SOURCE", "STATUS", "DETAIL"}, widths)
	for _, name := range sortedSources(rec) {
		e := rec.Sources[name]
		PrintTableRow([]string{name, statusLabel(e.Status), entryDetail(e)}, widths)
	}

	PrintSeparator()
	fmt.Printf("  Coverage: %.0f%% (%d available, %d skipped, %d failed)\n",
		rec.Coverage()*100, len(rec.Available()), len(rec.Skipped()), len(rec.Failed()))
}

func sortedSources(rec contracts.AggregateRecord) []string {
	names := make([]string, 0, len(rec.Sources))
	names = append(names, rec.Available()...)
	names = append(names, rec.Skipped()...)
	names = append(names, rec.Failed()...)
	return names
}

func statusLabel(s contracts.EntryStatus) string {
	switch s {
	case contracts.EntryAvailable:
		return "✅ ok"
	case contracts.EntrySkipped:
		return "⏭  skip"
	default:
		return "❌ fail"
	}
}

// entryDetail is a one-line description: reason for failures, compact data otherwise
func entryDetail(e contracts.SourceEntry) string {
	var detail string
	switch e.Status {
	case contracts.EntryAvailable:
		raw, err := json.Marshal(e.Data)
		if err != nil {
			detail = fmt.Sprintf("%v", e.Data)
		} else {
			detail = string(raw)
		}
	case contracts.EntrySkipped:
		detail = e.Reason
	default:
		detail = fmt.Sprintf("[%s] %s", e.Kind, e.Reason)
	}
	return truncate(detail, detailWidth)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
