// Package testdb поднимает встроенный PostgreSQL для интеграционных тестов
// и применяет миграции. Один сервер на процесс тестов; каждый тест получает
// чистые таблицы.
package testdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visaflow/migrations"
)

const (
	port     = 5499
	user     = "visaflow"
	password = "visaflow_secret"
	database = "visaflow_test"
)

var (
	once     sync.Once
	pool     *pgxpool.Pool
	startErr error
)

func start() {
	dataDir, err := os.MkdirTemp("", "visaflow-pgdata-")
	if err != nil {
		startErr = fmt.Errorf("create pgdata dir: %w", err)
		return
	}
	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-test-runtime")),
	)
	if err := db.Start(); err != nil {
		startErr = fmt.Errorf("start embedded postgres: %w", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url := fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable", user, password, port, database)
	pool, startErr = pgxpool.New(ctx, url)
	if startErr != nil {
		startErr = fmt.Errorf("connect: %w", startErr)
		return
	}
	startErr = applyMigrations(ctx)
}

func applyMigrations(ctx context.Context) error {
	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("run migration %s: %w", name, err)
		}
	}
	return nil
}

// New возвращает пул к тестовой БД с пустыми таблицами.
func New(t *testing.T) *pgxpool.Pool {
	t.Helper()
	once.Do(start)
	if startErr != nil {
		t.Skipf("embedded postgres unavailable: %v", startErr)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// users — корень FK-графа, каскад зачищает остальное
	if _, err := pool.Exec(ctx, `TRUNCATE users CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
