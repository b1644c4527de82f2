// Package db opens the local token store database. A sqlite:// DSN selects the embedded
// SQLite driver; postgres:// and postgresql:// select pgx for shared kiosk devices.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a DSN.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const pingTimeout = 5 * time.Second

// ParseDSN returns the dialect for dsn and the data source name the database/sql driver expects.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", "", errors.New("TOKEN_STORE_DSN is not set")
	}
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", errors.New("sqlite DSN has no path")
		}
		return DialectSQLite, path, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported token store DSN scheme in %q", redact(dsn))
	}
}

// Open opens and pings the database named by dsn. Caller must call Close when done.
func Open(dsn string) (*sql.DB, Dialect, error) {
	dialect, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	driver := "pgx"
	if dialect == DialectSQLite {
		driver = "sqlite"
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, "", err
	}
	if dialect == DialectSQLite {
		// One writer at a time; SQLite serializes writes anyway.
		db.SetMaxOpenConns(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
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

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}
