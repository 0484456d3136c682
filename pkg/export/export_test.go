package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/elonfeng/rentradar/pkg/listing"
)

func sample() []listing.Listing {
	return []listing.Listing{
		{
			ID:              20250701093000,
			Address:         "12 Oak St",
			URL:             "https://example.com/1",
			Price:           listing.Ptr(1000.0),
			Area:            listing.Ptr(750),
			Bedrooms:        listing.Ptr(2),
			Bathrooms:       listing.Ptr(1.5),
			Distance:        listing.Ptr(2.4),
			DateAvailable:   "2025-08-01",
			Occupants:       listing.Ptr(2),
			Rating:          listing.Ptr(8),
			CostPerArea:     listing.Ptr(1.33),
			CostPerOccupant: listing.Ptr(500.0),
			Score:           71.25,
			Group:           "shortlist",
			Contacted:       true,
			Comments:        "corner unit, \"quiet\"",
		},
		{ID: 2, Address: "9 Elm Ave", Group: listing.DefaultGroup},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header(), rows[0])

	first := rows[1]
	assert.Equal(t, "20250701093000", first[0])
	assert.Equal(t, "1000", first[3])
	assert.Equal(t, "1.5", first[6])
	assert.Equal(t, "71.25", first[14])
	assert.Equal(t, "true", first[16])
	assert.Equal(t, `corner unit, "quiet"`, first[18])

	second := rows[2]
	assert.Equal(t, "", second[3])
	assert.Equal(t, listing.NotAvailable, second[12])
	assert.Equal(t, listing.NotAvailable, second[13])
	assert.Equal(t, "0.00", second[14])
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, sample()))

	xl, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "address", rows[0][1])
	assert.Equal(t, "12 Oak St", rows[1][1])
	assert.Equal(t, "1000", rows[1][3])
	assert.Equal(t, "9 Elm Ave", rows[2][1])
	assert.Equal(t, listing.NotAvailable, rows[2][12])
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out", "listings.csv")
	require.NoError(t, WriteFile(csvPath, sample()))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "12 Oak St")

	xlsxPath := filepath.Join(dir, "listings.XLSX")
	require.NoError(t, WriteFile(xlsxPath, sample()))
	info, err := os.Stat(xlsxPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, WriteFile(filepath.Join(dir, "listings.pdf"), sample()))
}
