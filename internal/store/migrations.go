package store

// schema is portable across SQLite and Postgres. Nullable columns hold
// unknown values; images and components are JSON text. address_key is
// unique so two listings can never share a normalized address.
const schema = `
CREATE TABLE IF NOT EXISTS listings (
    id                BIGINT PRIMARY KEY,
    position          INTEGER NOT NULL,
    url               TEXT NOT NULL DEFAULT '',
    address           TEXT NOT NULL,
    address_key       TEXT NOT NULL,
    price             DOUBLE PRECISION,
    square_footage    INTEGER,
    bedrooms          INTEGER,
    bathrooms         DOUBLE PRECISION,
    distance          DOUBLE PRECISION,
    date_available    TEXT NOT NULL DEFAULT '',
    images            TEXT NOT NULL DEFAULT '[]',
    roommates         INTEGER,
    overall_rating    INTEGER,
    utility_estimate  DOUBLE PRECISION,
    comments          TEXT NOT NULL DEFAULT '',
    contacted         BOOLEAN NOT NULL DEFAULT FALSE,
    applied           BOOLEAN NOT NULL DEFAULT FALSE,
    group_name        TEXT NOT NULL DEFAULT 'none',
    cost_per_sqft     DOUBLE PRECISION,
    cost_per_occupant DOUBLE PRECISION,
    components        TEXT,
    score             DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_listings_position ON listings(position);
CREATE UNIQUE INDEX IF NOT EXISTS uq_listings_address_key ON listings(address_key);
CREATE INDEX IF NOT EXISTS idx_listings_score ON listings(score);
`
