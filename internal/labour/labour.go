// Package labour tidies Statistics Canada labour force survey full-table
// CSV downloads into a flat, date-sorted series. The raw table carries one
// row per (month, characteristic, industry, statistic, data type) with a
// dozen bookkeeping columns; only the national seasonally adjusted
// estimates survive the default filter.
package labour

import (
	"encoding/csv"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrMalformedData marks a table missing required columns or with an
// unparsable reference date.
var ErrMalformedData = eris.New("malformed labour table")

// Row is one tidy observation.
type Row struct {
	Year           int       `json:"year"`
	Month          int       `json:"month"`
	Date           time.Time `json:"date"`
	Characteristic string    `json:"characteristic"`
	Industry       string    `json:"industry"`
	UOM            string    `json:"uom"`
	Value          float64   `json:"value"`
}

// Options filters and decodes the raw table.
type Options struct {
	Geography         string   // default "Canada"
	Statistic         string   // default "Estimate"
	DataType          string   // default "Seasonally adjusted"
	ExcludeIndustries []string // NAICS labels to drop
	Encoding          string   // IANA charset name; empty means UTF-8
}

func (o *Options) applyDefaults() {
	if o.Geography == "" {
		o.Geography = "Canada"
	}
	if o.Statistic == "" {
		o.Statistic = "Estimate"
	}
	if o.DataType == "" {
		o.DataType = "Seasonally adjusted"
	}
}

// Source table column labels. The NAICS column carries the survey's full
// classification title.
const (
	colRefDate        = "REF_DATE"
	colGeo            = "GEO"
	colCharacteristic = "Labour force characteristics"
	colIndustry       = "North American Industry Classification System (NAICS)"
	colStatistics     = "Statistics"
	colDataType       = "Data type"
	colUOM            = "UOM"
	colValue          = "VALUE"
)

var (
	leadingDigits  = regexp.MustCompile(`^(\d+)`)
	trailingDigits = regexp.MustCompile(`(\d+)$`)
)

// ReadFile opens and tidies a downloaded table.
func ReadFile(path string, opts Options) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "labour: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, err := Read(f, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "labour: %s", path)
	}
	return rows, nil
}

// Read tidies a raw table: filter to the requested geography, statistic,
// and data type, coerce blank values to zero, derive year and month from
// REF_DATE, and sort by date. Row order within one month is preserved.
func Read(r io.Reader, opts Options) ([]Row, error) {
	opts.applyDefaults()

	if opts.Encoding != "" {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "labour: unknown encoding %q", opts.Encoding)
		}
		r = enc.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedData, "read header: %v", err)
	}
	// StatCan tables open with a UTF-8 BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	colIdx := mapColumns(header)
	for _, col := range []string{colRefDate, colGeo, colStatistics, colDataType, colValue} {
		if _, ok := colIdx[strings.ToLower(col)]; !ok {
			return nil, eris.Wrapf(ErrMalformedData, "required column %q not found", col)
		}
	}

	excluded := make(map[string]bool, len(opts.ExcludeIndustries))
	for _, ind := range opts.ExcludeIndustries {
		excluded[ind] = true
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(ErrMalformedData, "read row: %v", err)
		}

		if getCol(record, colIdx, colGeo) != opts.Geography {
			continue
		}
		if getCol(record, colIdx, colStatistics) != opts.Statistic {
			continue
		}
		if getCol(record, colIdx, colDataType) != opts.DataType {
			continue
		}

		industry := getCol(record, colIdx, colIndustry)
		if excluded[industry] {
			continue
		}

		refDate := getCol(record, colIdx, colRefDate)
		year, month, err := parseRefDate(refDate)
		if err != nil {
			return nil, err
		}

		rows = append(rows, Row{
			Year:           year,
			Month:          month,
			Date:           time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
			Characteristic: getCol(record, colIdx, colCharacteristic),
			Industry:       industry,
			UOM:            getCol(record, colIdx, colUOM),
			Value:          parseValue(getCol(record, colIdx, colValue)),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Month < rows[j].Month
	})

	return rows, nil
}

// parseRefDate splits a REF_DATE like "2024-03" into year and month.
func parseRefDate(s string) (int, int, error) {
	ym := leadingDigits.FindString(s)
	mm := trailingDigits.FindString(s)
	if ym == "" || mm == "" || ym == mm {
		return 0, 0, eris.Wrapf(ErrMalformedData, "unparsable REF_DATE %q", s)
	}

	year, err := strconv.Atoi(ym)
	if err != nil {
		return 0, 0, eris.Wrapf(ErrMalformedData, "unparsable REF_DATE %q", s)
	}
	month, err := strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, eris.Wrapf(ErrMalformedData, "unparsable REF_DATE %q", s)
	}

	return year, month, nil
}

// parseValue coerces a VALUE cell to float64, treating blank cells as zero.
func parseValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0.0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return v
}

// mapColumns builds a lowercased column name → index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name, empty when absent.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[strings.ToLower(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
