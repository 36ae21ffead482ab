package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Type identifies a database engine.
type Type string

type DataType string

const (
	Postgres   Type = "postgres"
	MySQL      Type = "mysql"
	SQLite     Type = "sqlite"
	ClickHouse Type = "clickhouse"
	MSSQL      Type = "mssql"
	Oracle     Type = "oracle"
	Snowflake  Type = "snowflake"
	Unknown    Type = "unknown"
)

var (
	ErrUnsupportedDatabase = errors.New("unsupported database type")
	ErrNoTables            = errors.New("no tables found")
)

// ParseType maps a connection type string to a Type.
// Unrecognized strings map to Unknown.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg", "redshift":
		return Postgres
	case "mysql", "mariadb":
		return MySQL
	case "sqlite", "sqlite3":
		return SQLite
	case "clickhouse", "ch":
		return ClickHouse
	case "mssql", "sqlserver", "sql server":
		return MSSQL
	case "oracle":
		return Oracle
	case "snowflake":
		return Snowflake
	default:
		return Unknown
	}
}

// DefaultSchema returns the schema an engine uses when none is specified.
// MySQL and ClickHouse use the database name and so return "".
func (t Type) DefaultSchema() string {
	switch t {
	case Postgres:
		return "public"
	case SQLite:
		return "main"
	case MSSQL:
		return "dbo"
	default:
		return ""
	}
}

// driverName returns the database/sql driver registered for t.
func (t Type) driverName() (string, error) {
	switch t {
	case Postgres:
		return "postgres", nil
	case MySQL:
		return "mysql", nil
	case SQLite:
		return "sqlite3", nil
	case ClickHouse:
		return "clickhouse", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDatabase, t)
	}
}

// Location describes where a snapshot was taken from.
type Location struct {
	Type     string `yaml:"type" json:"type"`
	Database string `yaml:"database" json:"database"`
	Schema   string `yaml:"schema" json:"schema"`
}

type TableInfo struct {
	Schema   string `yaml:"schema" json:"schema"`
	Name     string `yaml:"name" json:"name"`
	RowCount int64  `yaml:"row_count" json:"row_count"`
}

type ColumnInfo struct {
	Schema string   `yaml:"schema" json:"schema"`
	Table  string   `yaml:"table" json:"table"`
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
	Type   DataType `yaml:"type,omitempty" json:"type,omitempty"`
}

// SchemaSnapshot is a point-in-time view of the tables and columns of one
// database schema. It is treated as read-only once built.
type SchemaSnapshot struct {
	Location Location     `yaml:"location" json:"location"`
	Tables   []TableInfo  `yaml:"tables" json:"tables"`
	Columns  []ColumnInfo `yaml:"columns" json:"columns"`
}

// DatabaseType returns the engine type of the snapshot's location.
func (s *SchemaSnapshot) DatabaseType() Type {
	if s == nil {
		return Unknown
	}
	return ParseType(s.Location.Type)
}

type inspector interface {
	InspectSnapshot(ctx context.Context, db *sql.DB, schema string) (*SchemaSnapshot, error)
}

// Open opens and pings a connection for the given engine.
func Open(ctx context.Context, t Type, dsn string) (*sql.DB, error) {
	driver, err := t.driverName()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", t, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", t, err)
	}

	return db, nil
}

// InspectSnapshot detects the engine behind db and reads the tables, row
// counts and columns of schema. An empty schema selects the engine default.
func InspectSnapshot(ctx context.Context, db *sql.DB, schema string) (*SchemaSnapshot, error) {
	dbType, err := detectDatabaseType(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to detect database type: %w", err)
	}

	var insp inspector
	switch dbType {
	case Postgres:
		insp = &postgresInspector{}
	case MySQL:
		insp = &mysqlInspector{}
	case SQLite:
		insp = &sqliteInspector{}
	case ClickHouse:
		insp = &clickhouseInspector{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, dbType)
	}

	snap, err := insp.InspectSnapshot(ctx, db, schema)
	if err != nil {
		return nil, err
	}
	snap.Location.Type = string(dbType)

	return snap, nil
}

// detectDatabaseType probes db with engine-specific version queries.
func detectDatabaseType(ctx context.Context, db *sql.DB) (Type, error) {
	var version string

	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err == nil {
		return SQLite, nil
	}

	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err == nil {
		lower := strings.ToLower(version)
		switch {
		case strings.Contains(lower, "postgres"):
			return Postgres, nil
		case strings.Contains(lower, "mariadb"):
			return MySQL, nil
		}
		// MySQL reports a bare version such as "8.0.36"
		var comment string
		if err := db.QueryRowContext(ctx, "SELECT @@version_comment").Scan(&comment); err == nil {
			return MySQL, nil
		}
		// ClickHouse answers version() too, but only it knows currentDatabase()
		var dbName string
		if err := db.QueryRowContext(ctx, "SELECT currentDatabase()").Scan(&dbName); err == nil {
			return ClickHouse, nil
		}
	}

	return Unknown, ErrUnsupportedDatabase
}

// quoteIdent double-quotes an identifier for engines that accept ANSI quoting.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
