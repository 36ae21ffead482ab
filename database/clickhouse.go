package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// clickhouseInspector implements inspector for ClickHouse databases.
type clickhouseInspector struct{}

// InspectSnapshot reads all tables and columns of a ClickHouse database.
// Like MySQL, ClickHouse uses the database as the schema.
// Views and dictionaries are skipped.
func (c *clickhouseInspector) InspectSnapshot(ctx context.Context, db *sql.DB, schema string) (*SchemaSnapshot, error) {
	dbName, err := c.getDatabaseName(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to get database name: %w", err)
	}
	if schema == "" {
		schema = dbName
	}

	tables, err := c.getTables(ctx, db, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	columns, err := c.getAllColumns(ctx, db, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get all columns: %w", err)
	}

	return &SchemaSnapshot{
		Location: Location{Database: dbName, Schema: schema},
		Tables:   tables,
		Columns:  columns,
	}, nil
}

// getDatabaseName retrieves the current database name from ClickHouse.
func (c *clickhouseInspector) getDatabaseName(ctx context.Context, db *sql.DB) (string, error) {
	var dbName string
	err := db.QueryRowContext(ctx, "SELECT currentDatabase()").Scan(&dbName)
	return dbName, err
}

// getTables retrieves tables with their row totals. total_rows is NULL for
// engines that cannot report it cheaply.
func (c *clickhouseInspector) getTables(ctx context.Context, db *sql.DB, schema string) ([]TableInfo, error) {
	query := `
		SELECT database, name, ifNull(total_rows, 0)
		FROM system.tables
		WHERE database = ?
		  AND engine NOT LIKE '%View%'
		  AND engine NOT LIKE 'Dictionary%'
		ORDER BY name
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var table TableInfo
		var total uint64
		if err := rows.Scan(&table.Schema, &table.Name, &total); err != nil {
			return nil, err
		}
		table.RowCount = int64(total)
		tables = append(tables, table)
	}

	return tables, rows.Err()
}

// getAllColumns retrieves column information for all tables in schema.
func (c *clickhouseInspector) getAllColumns(ctx context.Context, db *sql.DB, schema string) ([]ColumnInfo, error) {
	query := `
		SELECT
		  database,
		  table,
		  name,
		  type
		FROM system.columns
		WHERE database = ?
		ORDER BY table, position
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var column ColumnInfo
		var columnType string
		if err := rows.Scan(&column.Schema, &column.Table, &column.Name, &columnType); err != nil {
			return nil, err
		}
		column.Type = DataType(formatClickHouseType(columnType))
		columns = append(columns, column)
	}

	return columns, rows.Err()
}

// formatClickHouseType unwraps LowCardinality(...) which only affects storage.
func formatClickHouseType(columnType string) string {
	if strings.HasPrefix(columnType, "LowCardinality(") && strings.HasSuffix(columnType, ")") {
		return strings.TrimSuffix(strings.TrimPrefix(columnType, "LowCardinality("), ")")
	}
	return columnType
}
