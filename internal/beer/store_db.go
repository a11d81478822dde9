package beer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

func (d Dialect) driver() string {
	if d == Postgres {
		return "pgx"
	}
	return "mysql"
}

// rebind rewrites ? placeholders into $n for postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var (
		b strings.Builder
		n int
	)
	for _, r := range q {
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

const beerColumns = `id, version, beer_name, beer_style, upc, quantity_on_hand, price, created_ts, updated_ts`

var schemas = map[Dialect]string{
	Postgres: `
		CREATE TABLE IF NOT EXISTS beer (
			id               VARCHAR(36) PRIMARY KEY,
			version          INTEGER NOT NULL,
			beer_name        VARCHAR(255) NOT NULL,
			beer_style       VARCHAR(32) NOT NULL,
			upc              VARCHAR(255) NOT NULL,
			quantity_on_hand INTEGER NOT NULL,
			price            NUMERIC(19, 2) NOT NULL,
			created_ts       TIMESTAMPTZ NOT NULL,
			updated_ts       TIMESTAMPTZ NOT NULL
		)`,
	MySQL: `
		CREATE TABLE IF NOT EXISTS beer (
			id               VARCHAR(36) PRIMARY KEY,
			version          INT NOT NULL,
			beer_name        VARCHAR(255) NOT NULL,
			beer_style       VARCHAR(32) NOT NULL,
			upc              VARCHAR(255) NOT NULL,
			quantity_on_hand INT NOT NULL,
			price            DECIMAL(19, 2) NOT NULL,
			created_ts       DATETIME(6) NOT NULL,
			updated_ts       DATETIME(6) NOT NULL
		)`,
}

var upserts = map[Dialect]string{
	Postgres: `
		INSERT INTO beer (` + beerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			beer_name = EXCLUDED.beer_name,
			beer_style = EXCLUDED.beer_style,
			upc = EXCLUDED.upc,
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			price = EXCLUDED.price,
			created_ts = EXCLUDED.created_ts,
			updated_ts = EXCLUDED.updated_ts`,
	MySQL: `
		INSERT INTO beer (` + beerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			version = VALUES(version),
			beer_name = VALUES(beer_name),
			beer_style = VALUES(beer_style),
			upc = VALUES(upc),
			quantity_on_hand = VALUES(quantity_on_hand),
			price = VALUES(price),
			created_ts = VALUES(created_ts),
			updated_ts = VALUES(updated_ts)`,
}

// SQLStore keeps beers in a single `beer` table. It works against Postgres
// (pgx stdlib driver) and MySQL (DSN must carry parseTime=true).
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQLStore opens the database, verifies the connection and creates the
// beer table when missing.
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if _, ok := schemas[dialect]; !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := NewSQLStore(db, dialect)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, schemas[s.dialect]); err != nil {
			return fmt.Errorf("create beer table: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *SQLStore) List(ctx context.Context) ([]Beer, error) {
	var out []Beer

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+beerColumns+`
			FROM beer
			ORDER BY created_ts ASC, id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Beer, 0, 16)
		for rows.Next() {
			b, err := scanBeer(rows)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (Beer, bool, error) {
	var (
		b   Beer
		err error
	)

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
			SELECT `+beerColumns+`
			FROM beer
			WHERE id = ?
		`), id.String())
		b, err = scanBeer(row)
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Beer{}, false, nil
	}
	if err != nil {
		return Beer{}, false, err
	}
	return b, true, nil
}

func (s *SQLStore) Put(ctx context.Context, b Beer) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.dialect.rebind(upserts[s.dialect]), beerArgs(b)...)
		return err
	})
}

func (s *SQLStore) Update(ctx context.Context, id uuid.UUID, fn func(*Beer)) (Beer, bool, error) {
	var (
		b     Beer
		found bool
	)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx, s.dialect.rebind(`
			SELECT `+beerColumns+`
			FROM beer
			WHERE id = ?
			FOR UPDATE
		`), id.String())
		b, err = scanBeer(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		fn(&b)
		b.ID = id

		_, err = tx.ExecContext(ctx, s.dialect.rebind(`
			UPDATE beer
			SET version = ?, beer_name = ?, beer_style = ?, upc = ?,
				quantity_on_hand = ?, price = ?, created_ts = ?, updated_ts = ?
			WHERE id = ?
		`), b.Version, b.Name, string(b.Style), b.UPC, b.QuantityOnHand, b.Price,
			b.CreatedDate, b.UpdateDate, id.String())
		if err != nil {
			return err
		}

		found = true
		return tx.Commit()
	})

	if err != nil {
		return Beer{}, false, err
	}
	if !found {
		return Beer{}, false, nil
	}
	return b, true, nil
}

func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM beer WHERE id = ?`), id.String())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})

	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBeer(row rowScanner) (Beer, error) {
	var (
		b     Beer
		style string
	)
	err := row.Scan(&b.ID, &b.Version, &b.Name, &style, &b.UPC, &b.QuantityOnHand,
		&b.Price, &b.CreatedDate, &b.UpdateDate)
	if err != nil {
		return Beer{}, err
	}
	b.Style = Style(style)
	b.CreatedDate = b.CreatedDate.UTC()
	b.UpdateDate = b.UpdateDate.UTC()
	return b, nil
}

func beerArgs(b Beer) []any {
	return []any{
		b.ID.String(), b.Version, b.Name, string(b.Style), b.UPC, b.QuantityOnHand,
		b.Price, b.CreatedDate, b.UpdateDate,
	}
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
