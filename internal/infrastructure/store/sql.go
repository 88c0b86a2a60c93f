package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dealscout/backend/internal/domain"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the SQL backend
type Config struct {
	Driver string
	DSN    string
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	price        DOUBLE PRECISION NOT NULL DEFAULT 0,
	currency     TEXT NOT NULL DEFAULT 'USD',
	list_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	on_sale      BOOLEAN NOT NULL DEFAULT FALSE,
	brand        TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	availability TEXT NOT NULL DEFAULT 'in_stock',
	retailer     TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	features     TEXT NOT NULL DEFAULT '[]',
	created_at   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_price ON products(price);
`

const productColumns = `id, title, description, price, currency, list_price, on_sale, brand, category, rating,
	review_count, availability, retailer, url, image_url, features, created_at`

const upsertProduct = `INSERT INTO products (` + productColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	price = excluded.price,
	currency = excluded.currency,
	list_price = excluded.list_price,
	on_sale = excluded.on_sale,
	brand = excluded.brand,
	category = excluded.category,
	rating = excluded.rating,
	review_count = excluded.review_count,
	availability = excluded.availability,
	retailer = excluded.retailer,
	url = excluded.url,
	image_url = excluded.image_url,
	features = excluded.features,
	created_at = excluded.created_at`

// SQLStore persists products in SQLite (modernc, no cgo) or PostgreSQL.
// Queries are written with ? placeholders and rebound for postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the configured database and applies the schema
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", domain.ErrStoreFailure, err)
	}
	if cfg.Driver == DriverSQLite {
		// A second connection to :memory: would see a different database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrStoreFailure, err)
	}

	s := &SQLStore{
		db:     db,
		driver: cfg.Driver,
		logger: logger.With("component", "store", "driver", cfg.Driver),
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	if s.driver == DriverSQLite {
		if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			return fmt.Errorf("%w: pragma: %v", domain.ErrStoreFailure, err)
		}
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", domain.ErrStoreFailure, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $1..$n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Upsert inserts or replaces products in one transaction
func (s *SQLStore) Upsert(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertProduct))
	if err != nil {
		return fmt.Errorf("%w: prepare upsert: %v", domain.ErrStoreFailure, err)
	}
	defer stmt.Close()

	for _, p := range products {
		if p.ID == "" {
			return fmt.Errorf("%w: product without id", domain.ErrStoreFailure)
		}
		features, err := json.Marshal(nonNil(p.Features))
		if err != nil {
			return fmt.Errorf("%w: encode features: %v", domain.ErrStoreFailure, err)
		}
		availability := p.Availability
		if availability == "" {
			availability = domain.AvailabilityInStock
		}
		currency := p.Currency
		if currency == "" {
			currency = "USD"
		}
		var created string
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Title, p.Description, p.Price, currency, p.ListPrice, p.OnSale, p.Brand, p.Category, p.Rating,
			p.ReviewCount, string(availability), p.Retailer, p.URL, p.ImageURL, string(features), created,
		); err != nil {
			return fmt.Errorf("%w: upsert %s: %v", domain.ErrStoreFailure, p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStoreFailure, err)
	}
	s.logger.Debug("upserted products", "count", len(products))
	return nil
}

// GetByIDs returns the stored products in request order, skipping unknown ids
func (s *SQLStore) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := "SELECT " + productColumns + " FROM products WHERE id IN (" + placeholders + ")"
	found, err := s.query(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]domain.Product, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// All returns every stored product ordered by id
func (s *SQLStore) All(ctx context.Context) ([]domain.Product, error) {
	return s.query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
}

// Count returns the number of stored products
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrStoreFailure, err)
	}
	return n, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var (
			p            domain.Product
			availability string
			features     string
			created      string
		)
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Price, &p.Currency, &p.ListPrice, &p.OnSale, &p.Brand, &p.Category, &p.Rating,
			&p.ReviewCount, &availability, &p.Retailer, &p.URL, &p.ImageURL, &features, &created,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrStoreFailure, err)
		}
		p.Availability = domain.Availability(availability)
		if features != "" {
			if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
				return nil, fmt.Errorf("%w: decode features of %s: %v", domain.ErrStoreFailure, p.ID, err)
			}
			if len(p.Features) == 0 {
				p.Features = nil
			}
		}
		if created != "" {
			t, err := time.Parse(time.RFC3339Nano, created)
			if err != nil {
				return nil, fmt.Errorf("%w: decode created_at of %s: %v", domain.ErrStoreFailure, p.ID, err)
			}
			p.CreatedAt = t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrStoreFailure, err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ domain.ProductRepository = (*SQLStore)(nil)
