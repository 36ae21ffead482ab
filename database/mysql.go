package database

import (
	"context"
	"database/sql"
	"fmt"
)

// mysqlInspector reads snapshots from MySQL and MariaDB. MySQL has no
// schema level below the database, so the schema is the database name.
type mysqlInspector struct{}

// InspectSnapshot reads all base tables and columns of schema, or of the
// current database when schema is empty.
func (m *mysqlInspector) InspectSnapshot(ctx context.Context, db *sql.DB, schema string) (*SchemaSnapshot, error) {
	dbName, err := m.getDatabaseName(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to get database name: %w", err)
	}
	if schema == "" {
		schema = dbName
	}

	tables, err := m.getTables(ctx, db, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	columns, err := m.getAllColumns(ctx, db, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get all columns: %w", err)
	}

	return &SchemaSnapshot{
		Location: Location{Database: dbName, Schema: schema},
		Tables:   tables,
		Columns:  columns,
	}, nil
}

// getDatabaseName retrieves the current database name from MySQL.
func (m *mysqlInspector) getDatabaseName(ctx context.Context, db *sql.DB) (string, error) {
	var dbName sql.NullString
	err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&dbName)
	return dbName.String, err
}

// getTables retrieves all base tables with InnoDB's row estimate.
func (m *mysqlInspector) getTables(ctx context.Context, db *sql.DB, schema string) ([]TableInfo, error) {
	query := `
		SELECT table_schema, table_name, COALESCE(table_rows, 0)
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var table TableInfo
		if err := rows.Scan(&table.Schema, &table.Name, &table.RowCount); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	return tables, rows.Err()
}

// getAllColumns retrieves column information for every table in schema.
func (m *mysqlInspector) getAllColumns(ctx context.Context, db *sql.DB, schema string) ([]ColumnInfo, error) {
	query := `
		SELECT
		  table_schema,
		  table_name,
		  column_name,
		  column_type
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position
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
		column.Type = DataType(columnType)
		columns = append(columns, column)
	}

	return columns, rows.Err()
}
