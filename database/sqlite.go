package database

import (
	"context"
	"database/sql"
	"fmt"
)

// sqliteInspector implements inspector for SQLite databases.
type sqliteInspector struct{}

// InspectSnapshot reads every user table of a SQLite database with exact
// row counts and column lists. SQLite has a single "main" schema.
func (s *sqliteInspector) InspectSnapshot(ctx context.Context, db *sql.DB, schema string) (*SchemaSnapshot, error) {
	if schema == "" {
		schema = SQLite.DefaultSchema()
	}

	names, err := s.getTableNames(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	snap := &SchemaSnapshot{
		Location: Location{Database: "main", Schema: schema},
	}

	for _, name := range names {
		rowCount, err := s.countRows(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("failed to count rows for table %s: %w", name, err)
		}
		snap.Tables = append(snap.Tables, TableInfo{Schema: schema, Name: name, RowCount: rowCount})

		columns, err := s.getColumns(ctx, db, schema, name)
		if err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", name, err)
		}
		snap.Columns = append(snap.Columns, columns...)
	}

	return snap, nil
}

// getTableNames retrieves all tables from the SQLite database.
func (s *sqliteInspector) getTableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func (s *sqliteInspector) countRows(ctx context.Context, db *sql.DB, tableName string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(tableName)).Scan(&count)
	return count, err
}

// getColumns retrieves all columns for a specific table.
func (s *sqliteInspector) getColumns(ctx context.Context, db *sql.DB, schema, tableName string) ([]ColumnInfo, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var cid int
		var name string
		var typeName string
		var notNull int
		var defaultValue sql.NullString
		var pk int

		if err := rows.Scan(&cid, &name, &typeName, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}

		columns = append(columns, ColumnInfo{
			Schema: schema,
			Table:  tableName,
			Name:   name,
			Type:   DataType(typeName),
		})
	}

	return columns, rows.Err()
}
