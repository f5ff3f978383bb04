package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/store"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	catalog repository.CatalogRepository
	ledger  store.InventoryStore
	timeout time.Duration
}

func NewProductHandler(catalog repository.CatalogRepository, ledger store.InventoryStore, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		ledger:  ledger,
		timeout: timeout,
	}
}

type ProductResponseDTO struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       domain.Money `json:"price_cents"`
	WeightGrams int64        `json:"weight_grams"`
	Available   int          `json:"available"`
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.GetAllProducts(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	infos, err := h.ledger.GetStock(ids)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	available := make(map[int64]int, len(infos))
	for _, info := range infos {
		available[info.ProductID] = info.Available()
	}

	dtos := make([]ProductResponseDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, productDTO(p, available[p.ID]))
	}

	respondJSON(w, http.StatusOK, dtos)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var avail int
	infos, err := h.ledger.GetStock([]int64{productID})
	if err == nil && len(infos) == 1 {
		avail = infos[0].Available()
	}

	respondJSON(w, http.StatusOK, productDTO(product, avail))
}

func productDTO(p *domain.Product, available int) ProductResponseDTO {
	return ProductResponseDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		WeightGrams: p.WeightGrams,
		Available:   available,
	}
}
