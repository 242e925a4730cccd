package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/prelovedtoys/marketplace-api/internal/models"
	"github.com/prelovedtoys/marketplace-api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

// taxonomy holds one seeded row per lookup table, enough to satisfy product
// foreign keys in tests.
type taxonomy struct {
	CategoryID int64
	AgeGroupID int64
	GenderID   int64
	ColorID    int64
}

func seedTaxonomy(t *testing.T, db *sql.DB) taxonomy {
	t.Helper()

	var tax taxonomy
	seeds := []struct {
		query string
		dest  *int64
	}{
		{`INSERT INTO categories (name) VALUES ('Building Blocks') ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`, &tax.CategoryID},
		{`INSERT INTO age_groups (name) VALUES ('3-5 years') ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`, &tax.AgeGroupID},
		{`INSERT INTO genders (name) VALUES ('Unisex') ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`, &tax.GenderID},
		{`INSERT INTO colors (name) VALUES ('Red') ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`, &tax.ColorID},
	}
	for _, seed := range seeds {
		if err := db.QueryRow(seed.query).Scan(seed.dest); err != nil {
			t.Fatalf("Seed taxonomy: %v", err)
		}
	}

	return tax
}

var userSeq int64

func createTestUser(t *testing.T, db *sql.DB, name string) *models.User {
	t.Helper()

	userSeq++
	mobile := fmt.Sprintf("+9100000%04d", userSeq)
	user, err := store.CreateUser(context.Background(), db, mobile, name, name+"@example.com", models.RoleUser)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func createTestProduct(t *testing.T, db *sql.DB, tax taxonomy, sellerID int64, title string, price decimal.Decimal) *models.Product {
	t.Helper()

	product, err := store.CreateProduct(context.Background(), db, store.CreateProductRequest{
		SellerID:    sellerID,
		Title:       title,
		Description: "Gently used, complete set",
		Price:       price,
		Condition:   models.ConditionGood,
		CategoryID:  tax.CategoryID,
		AgeGroupID:  tax.AgeGroupID,
		GenderID:    tax.GenderID,
		ColorID:     tax.ColorID,
		ImageURLs:   []string{"/uploads/" + strings.ReplaceAll(title, " ", "-") + ".jpg"},
	})
	if err != nil {
		t.Fatalf("Create product %q: %v", title, err)
	}
	return product
}

func addToCart(t *testing.T, db *sql.DB, userID, productID int64, qty int) {
	t.Helper()

	if _, err := store.AddCartItem(context.Background(), db, userID, productID, qty); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}
}

func productStatus(t *testing.T, db *sql.DB, productID int64) string {
	t.Helper()

	var status string
	if err := db.QueryRow(`SELECT status FROM products WHERE id = $1`, productID).Scan(&status); err != nil {
		t.Fatalf("Read product status: %v", err)
	}
	return status
}
