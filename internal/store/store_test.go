package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/elonfeng/rentradar/internal/config"
	"github.com/elonfeng/rentradar/pkg/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = "data:image/jpeg;base64," + strings.Repeat("Q", 64)

func sampleListings() []listing.Listing {
	return []listing.Listing{
		{
			ID:              20250701120000,
			URL:             "https://example.com/a",
			Address:         "12 Oak St, Fort Collins, CO",
			Price:           listing.Ptr(1450.0),
			Area:            listing.Ptr(900),
			Bedrooms:        listing.Ptr(2),
			Bathrooms:       listing.Ptr(1.5),
			Distance:        listing.Ptr(2.4),
			DateAvailable:   "August 1, 2025",
			Images:          []string{testImage},
			Occupants:       listing.Ptr(1),
			Rating:          listing.Ptr(8),
			UtilityEstimate: listing.Ptr(120.0),
			Comments:        "close to campus",
			Contacted:       true,
			Group:           "favorites",
			CostPerArea:     listing.Ptr(1.61),
			CostPerOccupant: listing.Ptr(1570.0),
			Components:      &listing.Components{Rent: 30, Sqft: 10, Bedrooms: 10, Bathrooms: 10, Distance: 5},
			Score:           65,
		},
		{
			ID:      20250701120001,
			Address: "9 Elm Ave",
			Images:  []string{},
			Group:   listing.DefaultGroup,
		},
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "listings.json")
	s := NewJSONStore(path)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	want := sampleListings()
	require.NoError(t, s.Save(ctx, want))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n        \"id\": 20250701120000")
	assert.Contains(t, string(data), `"cost_per_sqft": "N/A"`)
}

func TestJSONStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestJSONStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	got, err := NewJSONStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "rentradar.db"))
	require.NoError(t, err)
	defer s.Close()

	want := sampleListings()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// a second save replaces the whole collection
	require.NoError(t, s.Save(ctx, want[1:]))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(20250701120001), got[0].ID)

	require.NoError(t, s.Save(ctx, nil))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStoreRejectsDuplicateAddress(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "rentradar.db"))
	require.NoError(t, err)
	defer s.Close()

	want := sampleListings()
	require.NoError(t, s.Save(ctx, want))

	dup := want[0]
	dup.ID++
	dup.Address = "  " + strings.ToUpper(dup.Address) + " "
	err = s.Save(ctx, append(want, dup))
	require.Error(t, err)

	// the failed save leaves the previous collection in place
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(config.DatabaseConfig{Driver: "json", Path: filepath.Join(dir, "l.json")})
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = Open(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "l.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.DatabaseConfig{Driver: "mongo"})
	assert.Error(t, err)
}
