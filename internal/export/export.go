// Package export serializes probe results. Every format carries the same
// Site, URL, Status columns in result order.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/tdh8316/usercheck/internal/probe"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	SheetName = "Results"
)

var Header = []string{"Site", "URL", "Status"}

func row(r probe.Result) []string {
	return []string{r.Site, r.URL, r.Status()}
}

func WriteCSV(w io.Writer, results []probe.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, results []probe.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "xlsx")
	}

	put := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return f.SetSheetRow(SheetName, cell, &cells)
	}

	if err := put(1, Header); err != nil {
		return errors.Wrap(err, "xlsx header")
	}
	for i, r := range results {
		if err := put(i+2, row(r)); err != nil {
			return errors.Wrapf(err, "xlsx row %d", i+2)
		}
	}

	return f.Write(w)
}

// Write stores results as <root>/<name>/<name>_results.<format> for each
// format, where name is SafeName(username), and returns the written paths.
func Write(root, username string, formats []string, results []probe.Result) ([]string, error) {
	name := SafeName(username)
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))

		var write func(io.Writer, []probe.Result) error
		switch format {
		case FormatCSV:
			write = WriteCSV
		case FormatXLSX:
			write = WriteXLSX
		default:
			return paths, fmt.Errorf("unsupported export format %q", format)
		}

		path := filepath.Join(dir, name+"_results."+format)
		if err := writeFile(path, write, results); err != nil {
			return paths, errors.Wrapf(err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer, []probe.Result) error, results []probe.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := write(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SafeName turns a username into a single path element, so it can name a
// directory or file directly under the results root.
func SafeName(username string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, username)

	switch name {
	case "", ".", "..":
		return strings.Repeat("_", len(name)+1)
	}
	return name
}

// ValidFormat reports whether format is one Write accepts.
func ValidFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV, FormatXLSX:
		return true
	}
	return false
}
