package data

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName string = "data.db"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	dirMode = 0700

	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute

	createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`
	selectSchemaVersion = `SELECT COALESCE(MAX(version), 0) FROM schema_version`
	insertSchemaVersion = `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// IsPostgres reports whether dsn is a PostgreSQL connection URL rather than
// a SQLite file path.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func driverName(dsn string) string {
	if IsPostgres(dsn) {
		return driverPostgres
	}
	return driverSQLite
}

// Init creates the database for dsn when needed and applies any pending
// schema migrations. It is safe to call on an existing database.
func Init(dsn string) error {
	if dsn == "" {
		return errors.New("database path not specified")
	}

	if !IsPostgres(dsn) {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, dirMode); err != nil {
				return fmt.Errorf("error creating database dir %s: %w", dir, err)
			}
		}
	}

	db, err := GetDB(dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	if err := migrate(db, driverName(dsn)); err != nil {
		return fmt.Errorf("error migrating database schema: %w", err)
	}

	return nil
}

// GetDB opens the database for dsn. PostgreSQL URLs use lib/pq, anything else
// is a SQLite file path.
func GetDB(dsn string) (*sql.DB, error) {
	driver := driverName(dsn)
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == driverPostgres {
		conn.SetMaxOpenConns(maxOpenConns)
		conn.SetMaxIdleConns(maxIdleConns)
		conn.SetConnMaxLifetime(connMaxLifetime)
	} else {
		// single writer
		conn.SetMaxOpenConns(1)
	}

	return conn, nil
}

func isPostgresDB(db *sql.DB) bool {
	_, ok := db.Driver().(*pq.Driver)
	return ok
}

// rebind rewrites ? placeholders into $n when db is PostgreSQL.
func rebind(db *sql.DB, q string) string {
	if !isPostgresDB(db) {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type migration struct {
	version int
	name    string
}

func migrations(dialect string) ([]migration, error) {
	dir := path.Join("sql", dialect)
	entries, err := fs.ReadDir(f, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations in %s: %w", dir, err)
	}

	list := make([]migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), "_")
		v, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("invalid migration name %s: %w", e.Name(), err)
		}
		list = append(list, migration{version: v, name: path.Join(dir, e.Name())})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].version < list[j].version })
	return list, nil
}

func migrate(db *sql.DB, dialect string) error {
	if db == nil {
		return errDBNotInitialized
	}

	if _, err := db.Exec(createSchemaVersion); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	if err := db.QueryRow(selectSchemaVersion).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	list, err := migrations(dialect)
	if err != nil {
		return err
	}

	for _, m := range list {
		if m.version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
		slog.Debug("applied migration", "version", m.version, "file", m.name)
	}

	return nil
}

func apply(db *sql.DB, m migration) error {
	b, err := f.ReadFile(m.name)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", m.name, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	if _, err := tx.Exec(string(b)); err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
	}

	if _, err := tx.Exec(rebind(db, insertSchemaVersion), m.version, time.Now().UTC().Unix()); err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
	}
	return nil
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		slog.Error("error rolling back transaction", "error", err)
	}
}
