// Package export renders tabular results to CSV, XLSX, JSON, and the
// terminal.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/civicdata/opendata-cli/internal/labour"
	"github.com/civicdata/opendata-cli/pkg/citybikes"
)

// Table is a header plus rows of string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Stations builds a table from flattened station records.
func Stations(records []citybikes.StationRecord) Table {
	t := Table{
		Header: []string{"name", "bikes_available", "slots_available", "latitude", "longitude"},
		Rows:   make([][]string, 0, len(records)),
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.Name,
			strconv.Itoa(r.BikesAvailable),
			strconv.Itoa(r.SlotsAvailable),
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
		})
	}
	return t
}

// Labour builds a table from tidy labour rows.
func Labour(rows []labour.Row) Table {
	t := Table{
		Header: []string{"date", "characteristic", "industry", "uom", "value"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Date.Format("2006-01-02"),
			r.Characteristic,
			r.Industry,
			r.UOM,
			strconv.FormatFloat(r.Value, 'f', -1, 64),
		})
	}
	return t
}

// WriteCSV writes the table to w with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes the table to an XLSX file with a single sheet.
func WriteXLSX(path, sheetName string, t Table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", sheetName)
	}

	header := sheet.AddRow()
	for _, col := range t.Header {
		header.AddCell().SetString(col)
	}
	for _, row := range t.Rows {
		xr := sheet.AddRow()
		for _, cell := range row {
			xr.AddCell().SetString(cell)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "export: encode json")
}

// WriteText renders the table as fixed-width columns for the terminal.
func WriteText(w io.Writer, t Table) error {
	widths := make([]int, len(t.Header))
	for i, col := range t.Header {
		widths[i] = len(col)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var total int
	for _, w := range widths {
		total += w + 2
	}

	if err := writeTextRow(w, t.Header, widths); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", total)); err != nil {
		return eris.Wrap(err, "export: write separator")
	}
	for _, row := range t.Rows {
		if err := writeTextRow(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func writeTextRow(w io.Writer, cells []string, widths []int) error {
	var b strings.Builder
	for i, cell := range cells {
		width := len(cell)
		if i < len(widths) {
			width = widths[i]
		}
		fmt.Fprintf(&b, "%-*s  ", width, cell)
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
		return eris.Wrap(err, "export: write row")
	}
	return nil
}
