package database

import (
	"context"
	"database/sql"
	"fmt"
)

type postgresInspector struct{}

func (p *postgresInspector) InspectSnapshot(ctx context.Context, db *sql.DB, schema string) (*SchemaSnapshot, error) {
	if schema == "" {
		schema = Postgres.DefaultSchema()
	}

	dbName, err := p.getDatabaseName(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to get database name: %w", err)
	}

	tables, err := p.getTables(ctx, db, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	columns, err := p.getAllColumns(ctx, db, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get all columns: %w", err)
	}

	return &SchemaSnapshot{
		Location: Location{Database: dbName, Schema: schema},
		Tables:   tables,
		Columns:  columns,
	}, nil
}

func (p *postgresInspector) getDatabaseName(ctx context.Context, db *sql.DB) (string, error) {
	var dbName string
	err := db.QueryRowContext(ctx, "select current_database()").Scan(&dbName)
	return dbName, err
}

// getTables lists base tables with the planner's row estimate. reltuples is
// -1 for tables that were never analyzed; those report zero rows.
func (p *postgresInspector) getTables(ctx context.Context, db *sql.DB, schema string) ([]TableInfo, error) {
	query := `
		select t.table_schema, t.table_name, coalesce(c.reltuples, 0)::bigint
		from information_schema.tables t
		left join pg_catalog.pg_namespace n on n.nspname = t.table_schema
		left join pg_catalog.pg_class c on c.relname = t.table_name and c.relnamespace = n.oid
		where t.table_schema = $1
		and t.table_type = 'BASE TABLE'
		order by t.table_name
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
		if table.RowCount < 0 {
			table.RowCount = 0
		}
		tables = append(tables, table)
	}

	return tables, rows.Err()
}

func (p *postgresInspector) getAllColumns(ctx context.Context, db *sql.DB, schema string) ([]ColumnInfo, error) {
	query := `
		select
			table_schema,
			table_name,
			column_name,
			data_type,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		from information_schema.columns
		where table_schema = $1
		order by table_name, ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			tableSchema      string
			tableName        string
			columnName       string
			dataType         string
			charMaxLength    sql.NullInt64
			numericPrecision sql.NullInt64
			numericScale     sql.NullInt64
		)

		if err := rows.Scan(&tableSchema, &tableName, &columnName, &dataType, &charMaxLength,
			&numericPrecision, &numericScale); err != nil {
			return nil, err
		}

		columns = append(columns, ColumnInfo{
			Schema: tableSchema,
			Table:  tableName,
			Name:   columnName,
			Type:   DataType(formatPostgresType(dataType, charMaxLength, numericPrecision, numericScale)),
		})
	}

	return columns, rows.Err()
}

func formatPostgresType(dataType string, charMaxLength, numericPrecision, numericScale sql.NullInt64) string {
	switch dataType {
	case "character varying":
		if charMaxLength.Valid {
			return fmt.Sprintf("varchar(%d)", charMaxLength.Int64)
		}
		return "varchar"
	case "character":
		if charMaxLength.Valid {
			return fmt.Sprintf("char(%d)", charMaxLength.Int64)
		}
		return "char"
	case "numeric":
		if numericPrecision.Valid && numericScale.Valid {
			return fmt.Sprintf("numeric(%d,%d)", numericPrecision.Int64, numericScale.Int64)
		} else if numericPrecision.Valid {
			return fmt.Sprintf("numeric(%d)", numericPrecision.Int64)
		}
		return "numeric"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	case "time without time zone":
		return "time"
	case "time with time zone":
		return "timetz"
	default:
		return dataType
	}
}
