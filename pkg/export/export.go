// Package export writes listing collections as spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/elonfeng/rentradar/pkg/listing"
)

const sheetName = "Listings"

var header = []string{
	"id", "address", "url", "price", "square_footage", "bedrooms", "bathrooms",
	"distance", "date_available", "roommates", "overall_rating", "utility_estimate",
	"cost_per_sqft", "cost_per_occupant", "score", "group", "contacted", "applied", "comments",
}

// Header returns the exported column names.
func Header() []string {
	return append([]string(nil), header...)
}

func record(l *listing.Listing) []string {
	return []string{
		strconv.FormatInt(l.ID, 10),
		l.Address,
		l.URL,
		float(l.Price, ""),
		integer(l.Area),
		integer(l.Bedrooms),
		float(l.Bathrooms, ""),
		float(l.Distance, ""),
		l.DateAvailable,
		integer(l.Occupants),
		integer(l.Rating),
		float(l.UtilityEstimate, ""),
		float(l.CostPerArea, listing.NotAvailable),
		float(l.CostPerOccupant, listing.NotAvailable),
		strconv.FormatFloat(l.Score, 'f', 2, 64),
		l.Group,
		strconv.FormatBool(l.Contacted),
		strconv.FormatBool(l.Applied),
		l.Comments,
	}
}

func float(p *float64, missing string) string {
	if p == nil {
		return missing
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func integer(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// CSV writes listings as comma-separated values with a header row.
func CSV(w io.Writer, listings []listing.Listing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for i := range listings {
		if err := cw.Write(record(&listings[i])); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSX writes listings as a single-sheet workbook. Numeric columns are
// stored as numbers so the sheet can be re-sorted in a spreadsheet app.
func XLSX(w io.Writer, listings []listing.Listing) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := xl.SetSheetRow(sheetName, "A1", &row); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for i := range listings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		values := cells(&listings[i])
		if err := xl.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", i+2, err)
		}
	}

	if err := xl.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("xlsx: freeze header: %w", err)
	}

	if _, err := xl.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

// cells mirrors record but keeps numbers typed.
func cells(l *listing.Listing) []any {
	rec := record(l)
	out := make([]any, len(rec))
	for i, s := range rec {
		out[i] = s
	}
	out[0] = l.ID
	setFloat(out, 3, l.Price)
	setInt(out, 4, l.Area)
	setInt(out, 5, l.Bedrooms)
	setFloat(out, 6, l.Bathrooms)
	setFloat(out, 7, l.Distance)
	setInt(out, 9, l.Occupants)
	setInt(out, 10, l.Rating)
	setFloat(out, 11, l.UtilityEstimate)
	setFloat(out, 12, l.CostPerArea)
	setFloat(out, 13, l.CostPerOccupant)
	out[14] = l.Score
	out[16] = l.Contacted
	out[17] = l.Applied
	return out
}

func setFloat(out []any, i int, p *float64) {
	if p != nil {
		out[i] = *p
	}
}

func setInt(out []any, i int, p *int) {
	if p != nil {
		out[i] = *p
	}
}

// WriteFile picks the format from the file extension (.xlsx or .csv).
func WriteFile(path string, listings []listing.Listing) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".csv" {
		return fmt.Errorf("unsupported export format %q, use .xlsx or .csv", ext)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if ext == ".csv" {
		err = CSV(f, listings)
	} else {
		err = XLSX(f, listings)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
