// Package menu serves the read-only catalog used for order lines.
package menu

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Item is a catalog entry.
type Item struct {
	ID    int64        `json:"item_id"`
	Name  string       `json:"name"`
	Price money.Amount `json:"price"`
}

// Repository lists catalog items.
type Repository interface {
	// ListActive returns active items ordered by name.
	ListActive(ctx context.Context) ([]Item, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) ListActive(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT item_id, name, price FROM menu_items
		WHERE is_active
		ORDER BY name, item_id`)
	if err != nil {
		return nil, fmt.Errorf("menu: list: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Item])
}

// Handler exposes the catalog.
type Handler struct {
	logger *slog.Logger
	repo   Repository
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/menu-items", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListActive(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	httpx.JSON(w, http.StatusOK, items)
}
