package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/ids"
	"storefront/internal/models"
)

// newTestPool starts a throwaway PostgreSQL container, applies the
// migrations and returns a pool connected to it.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "storefront",
			"POSTGRES_PASSWORD": "storefront",
			"POSTGRES_DB":       "storefront",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
	require.NoError(t, database.Migrate(dsn))

	pool, err := database.NewPostgresPool(ctx, config.PostgresConfig{DSN: dsn, MaxOpen: 5})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func seedUser(t *testing.T, users *UserRepository, email string) models.User {
	t.Helper()
	user, err := users.Create(context.Background(), models.User{
		ID:           ids.New(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		PasswordHash: []byte("hash"),
		Role:         models.UserRoleCustomer,
	})
	require.NoError(t, err)
	return user
}

func seedProduct(t *testing.T, categories *CategoryRepository, products *ProductRepository, name string, priceCents int64, stock int) models.Product {
	t.Helper()
	ctx := context.Background()
	category, err := categories.Create(ctx, models.Category{ID: ids.New(), Name: "category-" + name})
	require.NoError(t, err)

	product, err := products.Create(ctx, models.Product{
		ID:         ids.New(),
		Name:       name,
		PriceCents: priceCents,
		Stock:      stock,
		CategoryID: category.ID,
	})
	require.NoError(t, err)
	return product
}
