package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

const exportTimeLayout = "20060102_150405"

var headerLabel = color.New(color.FgCyan, color.Bold)

// Export writes stats_summary_<ts>.csv and paths_<ts>.csv into dir and returns their paths.
func Export(dir string, stats throw.Stats, now time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	ts := now.UTC().Format(exportTimeLayout)

	summaryPath := filepath.Join(dir, "stats_summary_"+ts+".csv")
	if err := writeCSV(summaryPath, summaryRows(stats)); err != nil {
		return nil, err
	}

	pathsPath := filepath.Join(dir, "paths_"+ts+".csv")
	if err := writeCSV(pathsPath, pathRows(stats)); err != nil {
		return nil, err
	}
	return []string{summaryPath, pathsPath}, nil
}

func summaryRows(stats throw.Stats) [][]string {
	return [][]string{
		{"metric", "value"},
		{"users", strconv.Itoa(stats.Users)},
		{"active_users_7d", strconv.Itoa(stats.ActiveUsers7d)},
		{"throws", strconv.Itoa(stats.Throws)},
		{"completed_throws", strconv.Itoa(stats.CompletedThrows)},
		{"completion_rate_pct", strconv.FormatFloat(stats.CompletionRate, 'f', 1, 64)},
		{"avg_throws_per_user", strconv.FormatFloat(stats.AvgThrowsPerUser, 'f', 1, 64)},
	}
}

// pathRows lists every known path, including those never chosen, then any unknown keys.
func pathRows(stats throw.Stats) [][]string {
	rows := [][]string{{"path", "count", "share_pct"}}
	seen := map[catalog.PathKey]bool{}
	addRow := func(key catalog.PathKey) {
		count := stats.PathDistribution[key]
		share := 0.0
		if stats.CompletedThrows > 0 {
			share = float64(count) * 100 / float64(stats.CompletedThrows)
		}
		rows = append(rows, []string{string(key), strconv.Itoa(count), strconv.FormatFloat(share, 'f', 1, 64)})
		seen[key] = true
	}

	for _, p := range catalog.SeedPaths() {
		addRow(p.Key)
	}
	var extra []string
	for key := range stats.PathDistribution {
		if !seen[key] {
			extra = append(extra, string(key))
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		addRow(catalog.PathKey(key))
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// PrintStats writes a human readable report.
func PrintStats(w io.Writer, stats throw.Stats) error {
	headerLabel.Fprintln(w, "Insight Dice statistics")
	for _, row := range summaryRows(stats)[1:] {
		if _, err := fmt.Fprintf(w, "  %-22s %s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	headerLabel.Fprintln(w, "Path distribution")
	for _, row := range pathRows(stats)[1:] {
		if _, err := fmt.Fprintf(w, "  %-22s %s (%s%%)\n", row[0], row[1], row[2]); err != nil {
			return err
		}
	}
	return nil
}
