// Package testhelpers starts the shared PostgreSQL container used by the
// integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"carenote/internal/db"
)

const PostgresImage = "postgres:16-alpine"

type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a migrated database shared by every test in the run.
// Tests are skipped in short mode since the container needs Docker.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}
	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "carenote_test",
			"POSTGRES_USER":     "carenote",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://carenote:test_password@%s:%s/carenote_test?sslmode=disable",
		host, port.Port())

	var gdb *gorm.DB
	for i := 0; i < 10; i++ {
		gdb, err = db.Connect(connStr)
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &TestDB{Container: container, DB: gdb, ConnStr: connStr}, nil
}

// Truncate empties the given tables so a test starts from a known state.
func (t *TestDB) Truncate(tb testing.TB, tables ...string) {
	tb.Helper()
	for _, table := range tables {
		if err := t.DB.Exec("truncate table " + table + " restart identity cascade").Error; err != nil {
			tb.Fatalf("truncate %s: %v", table, err)
		}
	}
}
