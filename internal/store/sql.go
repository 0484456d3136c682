package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elonfeng/rentradar/pkg/listing"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// row is the relational shape of a listing.
type row struct {
	ID              int64    `db:"id"`
	Position        int      `db:"position"`
	URL             string   `db:"url"`
	Address         string   `db:"address"`
	AddressKey      string   `db:"address_key"`
	Price           *float64 `db:"price"`
	Area            *int64   `db:"square_footage"`
	Bedrooms        *int64   `db:"bedrooms"`
	Bathrooms       *float64 `db:"bathrooms"`
	Distance        *float64 `db:"distance"`
	DateAvailable   string   `db:"date_available"`
	ImagesJSON      string   `db:"images"`
	Occupants       *int64   `db:"roommates"`
	Rating          *int64   `db:"overall_rating"`
	UtilityEstimate *float64 `db:"utility_estimate"`
	Comments        string   `db:"comments"`
	Contacted       bool     `db:"contacted"`
	Applied         bool     `db:"applied"`
	Group           string   `db:"group_name"`
	CostPerArea     *float64 `db:"cost_per_sqft"`
	CostPerOccupant *float64 `db:"cost_per_occupant"`
	ComponentsJSON  *string  `db:"components"`
	Score           float64  `db:"score"`
}

const insertListing = `
INSERT INTO listings (
    id, position, url, address, address_key, price, square_footage, bedrooms, bathrooms,
    distance, date_available, images, roommates, overall_rating, utility_estimate, comments,
    contacted, applied, group_name, cost_per_sqft, cost_per_occupant, components, score
) VALUES (
    :id, :position, :url, :address, :address_key, :price, :square_footage, :bedrooms, :bathrooms,
    :distance, :date_available, :images, :roommates, :overall_rating, :utility_estimate, :comments,
    :contacted, :applied, :group_name, :cost_per_sqft, :cost_per_occupant, :components, :score
)`

// SQLStore keeps the collection in a SQL table through sqlx.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLite opens a SQLite database and runs migrations.
func NewSQLite(path string) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer keeps whole-collection replaces from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return newSQLStore(db)
}

// NewPostgres connects to Postgres and runs migrations.
func NewPostgres(dsn string) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(db)
}

func newSQLStore(db *sqlx.DB) (*SQLStore, error) {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Load reads every listing in saved order.
func (s *SQLStore) Load(ctx context.Context) ([]listing.Listing, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM listings ORDER BY position"); err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	listings := make([]listing.Listing, 0, len(rows))
	for i := range rows {
		l, err := rows[i].toListing()
		if err != nil {
			return nil, fmt.Errorf("decode listing %d: %w", rows[i].ID, err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// Save replaces the table contents in one transaction.
func (s *SQLStore) Save(ctx context.Context, listings []listing.Listing) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM listings"); err != nil {
		return fmt.Errorf("clear listings: %w", err)
	}
	for i := range listings {
		r, err := fromListing(&listings[i], i)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertListing, r); err != nil {
			return fmt.Errorf("insert listing %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit listings: %w", err)
	}
	return nil
}

func fromListing(l *listing.Listing, pos int) (row, error) {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return row{}, fmt.Errorf("encode images %d: %w", l.ID, err)
	}

	r := row{
		ID:              l.ID,
		Position:        pos,
		URL:             l.URL,
		Address:         l.Address,
		AddressKey:      l.Key(),
		Price:           l.Price,
		Area:            toInt64(l.Area),
		Bedrooms:        toInt64(l.Bedrooms),
		Bathrooms:       l.Bathrooms,
		Distance:        l.Distance,
		DateAvailable:   l.DateAvailable,
		ImagesJSON:      string(imagesJSON),
		Occupants:       toInt64(l.Occupants),
		Rating:          toInt64(l.Rating),
		UtilityEstimate: l.UtilityEstimate,
		Comments:        l.Comments,
		Contacted:       l.Contacted,
		Applied:         l.Applied,
		Group:           l.Group,
		CostPerArea:     l.CostPerArea,
		CostPerOccupant: l.CostPerOccupant,
		Score:           l.Score,
	}
	if l.Components != nil {
		data, err := json.Marshal(l.Components)
		if err != nil {
			return row{}, fmt.Errorf("encode components %d: %w", l.ID, err)
		}
		s := string(data)
		r.ComponentsJSON = &s
	}
	return r, nil
}

func (r *row) toListing() (listing.Listing, error) {
	l := listing.Listing{
		ID:              r.ID,
		URL:             r.URL,
		Address:         r.Address,
		Price:           r.Price,
		Area:            toInt(r.Area),
		Bedrooms:        toInt(r.Bedrooms),
		Bathrooms:       r.Bathrooms,
		Distance:        r.Distance,
		DateAvailable:   r.DateAvailable,
		Occupants:       toInt(r.Occupants),
		Rating:          toInt(r.Rating),
		UtilityEstimate: r.UtilityEstimate,
		Comments:        r.Comments,
		Contacted:       r.Contacted,
		Applied:         r.Applied,
		Group:           r.Group,
		CostPerArea:     r.CostPerArea,
		CostPerOccupant: r.CostPerOccupant,
		Score:           r.Score,
	}
	if err := json.Unmarshal([]byte(r.ImagesJSON), &l.Images); err != nil {
		return l, fmt.Errorf("images: %w", err)
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	if r.ComponentsJSON != nil && *r.ComponentsJSON != "" {
		var c listing.Components
		if err := json.Unmarshal([]byte(*r.ComponentsJSON), &c); err != nil {
			return l, fmt.Errorf("components: %w", err)
		}
		l.Components = &c
	}
	return l, nil
}

func toInt64(p *int) *int64 {
	if p == nil {
		return nil
	}
	v := int64(*p)
	return &v
}

func toInt(p *int64) *int {
	if p == nil {
		return nil
	}
	v := int(*p)
	return &v
}
