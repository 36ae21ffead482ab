package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mysqlConnStr = "root:mysql@tcp(localhost:3306)/testdb"

var mysqlTestSchema = []string{
	`CREATE TABLE IF NOT EXISTS test_users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(100),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS test_posts (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT,
		title VARCHAR(200) NOT NULL,
		content TEXT,
		published BOOLEAN DEFAULT FALSE,
		CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES test_users(id)
	)`,
}

func TestMySQLInspectSnapshot(t *testing.T) {
	db := openDocker(t, "mysql", mysqlConnStr)
	ctx := context.Background()

	require.NoError(t, createTestSchema(ctx, db, mysqlTestSchema))
	defer cleanupTestSchema(ctx, db)

	snap, err := InspectSnapshot(ctx, db, "")
	require.NoError(t, err)

	assertTestSnapshot(t, snap)
	assert.Equal(t, "mysql", snap.Location.Type)
	assert.Equal(t, "testdb", snap.Location.Schema)
}

func TestMySQLDatabaseDetection(t *testing.T) {
	db := openDocker(t, "mysql", mysqlConnStr)

	dbType, err := detectDatabaseType(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, MySQL, dbType)
}
