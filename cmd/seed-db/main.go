// Command seed-db prepares a fresh database for local development: it runs
// migrations, loads the product catalog from a JSON file, registers a few
// starter coupons, and issues a bootstrap access token for the admin API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
	"github.com/xenking/storefront-admin/internal/domain/product"
	"github.com/xenking/storefront-admin/internal/domain/token"
	"github.com/xenking/storefront-admin/internal/repository"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		tokenUserID  int64
		tokenValue   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Int64Var(&tokenUserID, "token-user-id", 1, "user id the bootstrap token is issued for")
	flag.StringVar(&tokenValue, "token-value", "", "fixed bootstrap token value (random when empty)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, tokenUserID, tokenValue); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string, tokenUserID int64, tokenValue string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(databaseURL); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedToken(ctx, repository.NewTokenRepository(pool), tokenUserID, tokenValue); err != nil {
		return errors.Wrap(err, "seed token")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var entries []productJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("inserting products", slog.Int("count", len(entries)))

	for _, e := range entries {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return errors.Wrapf(err, "parse product id %q", e.ID)
		}

		// Seeding reruns on every deploy; keep it idempotent.
		if _, err := repo.GetByID(ctx, id); err == nil {
			slog.Info("product exists, skipping", slog.String("id", e.ID))
			continue
		} else if !errors.Is(err, product.ErrNotFound) {
			return errors.Wrapf(err, "check product %s", e.ID)
		}

		p := &product.Product{
			ID:          id,
			Name:        e.Name,
			Description: e.Description,
			Price:       e.Price,
			Image: product.Image{
				Thumbnail: e.Image.Thumbnail,
				Mobile:    e.Image.Mobile,
				Tablet:    e.Image.Tablet,
				Desktop:   e.Image.Desktop,
			},
		}
		if e.Category != "" {
			p.Categories = []product.Category{{Name: e.Category}}
		}

		if err := repo.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "insert product %s", e.ID)
		}

		slog.Info("inserted product", slog.String("id", e.ID), slog.String("name", e.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	slog.Info("seeding starter coupons")

	coupons := []coupon.Coupon{
		{
			Code:        "WELCOME10",
			Description: "Welcome promo for new customers",
		},
		{
			Code:          "BIGCART25",
			MinOrderValue: decimal.NewFromInt(25),
			Description:   "Reward for carts over 25",
		},
		{
			Code:        "LOYALTY",
			Recursive:   true,
			Description: "Loyalty bonus, stacks with other promos",
		},
	}

	if err := repo.UpsertBatch(ctx, coupons); err != nil {
		return errors.Wrap(err, "upsert starter coupons")
	}

	for _, c := range coupons {
		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

func seedToken(ctx context.Context, repo *repository.TokenRepository, userID int64, value string) error {
	slog.Info("issuing bootstrap token", slog.Int64("user_id", userID))

	if value != "" {
		// Fixed value for test environments; skip when it already exists.
		if _, err := repo.FindByValue(ctx, value); err == nil {
			slog.Info("bootstrap token exists, skipping")
			return nil
		} else if !errors.Is(err, token.ErrNotFound) {
			return errors.Wrap(err, "check bootstrap token")
		}

		t := &token.Token{UserID: userID, Value: value, Type: token.TypeAccess}
		if err := repo.Insert(ctx, t); err != nil {
			return errors.Wrap(err, "insert bootstrap token")
		}
		slog.Info("bootstrap token inserted", slog.Int64("id", t.ID), slog.Int64("user_id", t.UserID))
		return nil
	}

	t, err := token.NewService(repo).Issue(ctx, userID, token.TypeAccess)
	if err != nil {
		return errors.Wrap(err, "issue bootstrap token")
	}

	// The value is only shown here; the API never returns it again.
	slog.Info("bootstrap token issued",
		slog.Int64("id", t.ID),
		slog.Int64("user_id", t.UserID),
		slog.String("value", t.Value),
	)

	return nil
}
