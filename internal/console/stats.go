package console

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"

	"github.com/river-cli/river/internal/bundler"
)

// AssetRow is one line of the build summary.
type AssetRow struct {
	Name     string
	Size     int64
	GzipSize int64
	Kind     string
}

// SummarizeAssets lists the script and stylesheet assets of stats, measuring
// gzip sizes from the files under outputDir. Source maps are skipped. Rows
// are ordered scripts first, then stylesheets, largest first.
func SummarizeAssets(stats *bundler.Stats, outputDir string) []AssetRow {
	var rows []AssetRow
	for _, a := range stats.Assets {
		kind := assetKind(a.Name)
		if kind == "" {
			continue
		}
		row := AssetRow{Name: a.Name, Size: a.Size, Kind: kind}
		if data, err := os.ReadFile(filepath.Join(outputDir, filepath.FromSlash(a.Name))); err == nil {
			row.Size = int64(len(data))
			row.GzipSize = gzipSize(data)
		}
		rows = append(rows, row)
	}
	slices.SortStableFunc(rows, func(a, b AssetRow) int {
		if a.Kind != b.Kind {
			return strings.Compare(a.Kind, b.Kind) * -1
		}
		switch {
		case a.Size > b.Size:
			return -1
		case a.Size < b.Size:
			return 1
		}
		return 0
	})
	return rows
}

// AssetSummary prints the asset table for a finished build.
func (c *Console) AssetSummary(stats *bundler.Stats, outputDir, displayDir string) {
	rows := SummarizeAssets(stats, outputDir)
	if len(rows) == 0 {
		return
	}
	nameWidth := len("File")
	for _, r := range rows {
		nameWidth = max(nameWidth, len(path.Join(displayDir, r.Name)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %s %s\n",
		c.bold.Render(fmt.Sprintf("%-*s", nameWidth, "File")), c.bold.Render(fmt.Sprintf("%-12s", "Size")), c.bold.Render("Gzipped"))
	b.WriteString("\n")
	for _, r := range rows {
		name := path.Join(displayDir, r.Name)
		padding := strings.Repeat(" ", nameWidth-len(name))
		gz := "-"
		if r.GzipSize > 0 {
			gz = humanize.Bytes(uint64(r.GzipSize))
		}
		fmt.Fprintf(&b, "  %s%s  %-12s %s\n", c.asset[r.Kind].Render(name), padding, humanize.Bytes(uint64(r.Size)), gz)
	}
	b.WriteString("\n  " + c.dim.Render("Images and other types of assets omitted.") + "\n\n")
	c.write(false, b.String())
}

// assetKind classifies asset names. "js" sorts before "css".
func assetKind(name string) string {
	switch {
	case strings.HasSuffix(name, ".map"):
		return ""
	case strings.HasSuffix(name, ".js"), strings.HasSuffix(name, ".mjs"):
		return "js"
	case strings.HasSuffix(name, ".css"):
		return "css"
	default:
		return ""
	}
}

func gzipSize(data []byte) int64 {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return 0
	}
	if _, err := zw.Write(data); err != nil {
		return 0
	}
	if err := zw.Close(); err != nil {
		return 0
	}
	return int64(buf.Len())
}
