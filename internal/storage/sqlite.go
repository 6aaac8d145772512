package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Drivers accepted by Open. The names are the database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps a SQL connection and the dialect it speaks.
type DB struct {
	conn   *sql.DB
	driver string
}

// New opens (or creates) the SQLite file at dbPath.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	return finishOpen(conn, DriverSQLite)
}

// Open connects to driver at dsn. For sqlite the dsn is a file path.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		return New(dsn)
	case DriverPostgres:
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		// Timestamps are scanned into time.Time.
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return finishOpen(conn, driver)
}

func finishOpen(conn *sql.DB, driver string) (*DB, error) {
	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the driver name the DB was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// rebind rewrites ? placeholders for drivers that number them.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// upsert builds an insert that overwrites cols on a key conflict.
func (db *DB) upsert(table, key string, cols ...string) string {
	all := append([]string{key}, cols...)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(all, ", "), marks)

	sets := make([]string, len(cols))
	if db.driver == DriverMySQL {
		for i, c := range cols {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return q + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return q + fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET ", key) + strings.Join(sets, ", ")
}

func (db *DB) exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(db.rebind(query), args...)
}

func (db *DB) query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(db.rebind(query), args...)
}

func (db *DB) queryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(db.rebind(query), args...)
}

func (db *DB) migrate() error {
	for _, m := range schema(db.driver) {
		if _, err := db.conn.Exec(m); err != nil {
			head := m
			if len(head) > 40 {
				head = head[:40]
			}
			return fmt.Errorf("migration failed: %s: %w", head, err)
		}
	}
	return nil
}

func schema(driver string) []string {
	switch driver {
	case DriverMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS documents (
				page_id VARCHAR(191) PRIMARY KEY,
				tree_json LONGTEXT NOT NULL,
				updated_at DATETIME(6) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS undo_nodes (
				id VARCHAR(64) PRIMARY KEY,
				page_id VARCHAR(191) NOT NULL,
				parent_id VARCHAR(64) NULL,
				seq BIGINT NOT NULL,
				label VARCHAR(255) NOT NULL,
				snapshot_json LONGTEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				INDEX idx_undo_nodes_page (page_id, seq)
			)`,
			`CREATE TABLE IF NOT EXISTS undo_state (
				page_id VARCHAR(191) PRIMARY KEY,
				current_node_id VARCHAR(64) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS mcp_approvals (
				id VARCHAR(64) PRIMARY KEY,
				tool VARCHAR(128) NOT NULL,
				description TEXT NOT NULL,
				status VARCHAR(16) NOT NULL,
				metadata TEXT NOT NULL,
				created_at DATETIME(6) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS app_settings (
				setting_key VARCHAR(191) PRIMARY KEY,
				setting_value TEXT NOT NULL
			)`,
		}
	default:
		ts := "DATETIME"
		if driver == DriverPostgres {
			ts = "TIMESTAMPTZ"
		}
		return []string{
			`CREATE TABLE IF NOT EXISTS documents (
				page_id TEXT PRIMARY KEY,
				tree_json TEXT NOT NULL,
				updated_at ` + ts + ` NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS undo_nodes (
				id TEXT PRIMARY KEY,
				page_id TEXT NOT NULL,
				parent_id TEXT,
				seq BIGINT NOT NULL,
				label TEXT NOT NULL,
				snapshot_json TEXT NOT NULL,
				created_at ` + ts + ` NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_undo_nodes_page ON undo_nodes(page_id, seq)`,
			`CREATE TABLE IF NOT EXISTS undo_state (
				page_id TEXT PRIMARY KEY,
				current_node_id TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS mcp_approvals (
				id TEXT PRIMARY KEY,
				tool TEXT NOT NULL,
				description TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				metadata TEXT NOT NULL DEFAULT '{}',
				created_at ` + ts + ` NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS app_settings (
				setting_key TEXT PRIMARY KEY,
				setting_value TEXT NOT NULL DEFAULT ''
			)`,
		}
	}
}
