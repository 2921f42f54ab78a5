package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/studio1767/hashforge/internal/ops"
	"github.com/studio1767/hashforge/internal/verify"
)

const rule = "========================================"

// group is the records of one file, in emission order.
type group struct {
	path    string
	records []ops.HashRecord
}

func groupByFile(records []ops.HashRecord) []*group {
	var groups []*group
	index := make(map[string]*group)

	for _, rec := range records {
		g, ok := index[rec.FullPath]
		if !ok {
			g = &group{path: rec.FullPath}
			index[rec.FullPath] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, rec)
	}

	return groups
}

// WriteReport writes the human readable report, grouped by file.
func WriteReport(w io.Writer, records []ops.HashRecord, generated time.Time) error {
	groups := groupByFile(records)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, "           HASHFORGE REPORT")
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "Date:         %s\n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(bw, "Total files:  %d\n", len(groups))
	fmt.Fprintf(bw, "Total hashes: %d\n", len(records))
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw)

	for _, g := range groups {
		first := g.records[0]
		fmt.Fprintf(bw, "File: %s\n", first.FileName)
		fmt.Fprintf(bw, "Path: %s\n", first.FullPath)
		fmt.Fprintf(bw, "Size: %s\n", first.SizeText)
		fmt.Fprintln(bw)

		for _, rec := range g.records {
			value := rec.Digest
			if rec.Failed() {
				value = "ERROR: " + rec.Error
			} else if rec.Match != verify.NotVerified {
				value = fmt.Sprintf("%s (%s)", value, rec.Match)
			}
			fmt.Fprintf(bw, "  %-8s: %s\n", rec.Algorithm, value)
		}
		fmt.Fprintln(bw, strings.Repeat("-", len(rule)))
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Generated by hashforge")

	return bw.Flush()
}

// WriteCheckFile writes "DIGEST *relative/path" lines, one per algorithm
// per file, readable by the usual *sum -c tools. Files with more than one
// digest are preceded by a "; relative/path" comment. Failed records are
// left out.
func WriteCheckFile(w io.Writer, records []ops.HashRecord, baseDir string) error {
	bw := bufio.NewWriter(w)

	for _, g := range groupByFile(records) {
		var good []ops.HashRecord
		for _, rec := range g.records {
			if !rec.Failed() {
				good = append(good, rec)
			}
		}
		if len(good) == 0 {
			continue
		}

		rpath := RelativePath(g.path, baseDir)
		if len(good) > 1 {
			fmt.Fprintf(bw, "; %s\n", rpath)
		}
		for _, rec := range good {
			fmt.Fprintf(bw, "%s *%s\n", rec.Digest, rpath)
		}
	}

	return bw.Flush()
}

// RelativePath is fullPath relative to baseDir, or just the file name when
// no relative path exists.
func RelativePath(fullPath, baseDir string) string {
	if baseDir == "" {
		return filepath.Base(fullPath)
	}

	afull, err := filepath.Abs(fullPath)
	if err != nil {
		return filepath.Base(fullPath)
	}
	abase, err := filepath.Abs(baseDir)
	if err != nil {
		return filepath.Base(fullPath)
	}

	rel, err := filepath.Rel(abase, afull)
	if err != nil {
		return filepath.Base(fullPath)
	}
	return rel
}

// IsReport reports whether an export to path gets the human readable
// report (".txt") rather than a check file.
func IsReport(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// Render writes the format chosen by IsReport for an export to path.
func Render(w io.Writer, path string, records []ops.HashRecord, now time.Time) error {
	if IsReport(path) {
		return WriteReport(w, records, now)
	}
	return WriteCheckFile(w, records, filepath.Dir(path))
}

// Export writes the records to path; relative paths in check files are
// relative to the export file's directory.
func Export(path string, records []ops.HashRecord, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Render(f, path, records, now); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return f.Close()
}
