package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"farm-store/internal/docstore"
	"farm-store/internal/models"
	"farm-store/internal/util"
)

const catalogKey = "products"

// DefaultCatalog seeds the catalog document the first time it is read.
var DefaultCatalog = []models.CatalogItem{
	{ID: 1, Name: "Fresh Cow Milk (1L)", Price: 60, Description: "Pure farm fresh milk collected every morning.", Image: "p5.jpg"},
	{ID: 2, Name: "Milk Kova (200g)", Price: 180, Description: "Traditional milk sweet, rich and creamy.", Image: "p1.jpg"},
	{ID: 3, Name: "Paneer (200g)", Price: 120, Description: "Soft and fresh paneer perfect for curries.", Image: "p2.jpg"},
	{ID: 4, Name: "Curd (200g)", Price: 20, Description: "Thick, homemade-style curd.", Image: "p3.jpg"},
	{ID: 5, Name: "Ghee (200g)", Price: 300, Description: "A2 cow ghee with rich aroma and flavour.", Image: "p4.jpg"},
}

// CatalogItemInput is the admin product form. Price is raw form text.
type CatalogItemInput struct {
	Name        string `json:"name" form:"name"`
	Price       string `json:"price" form:"price"`
	Description string `json:"description" form:"description"`
	Image       string `json:"image" form:"image"`
}

// CatalogService keeps the product list in the document store. The stored
// document is what orders are priced against.
type CatalogService struct {
	docs   docstore.Store
	mu     sync.Mutex
	logger *zap.Logger
}

func NewCatalogService(docs docstore.Store) *CatalogService {
	return &CatalogService{
		docs:   docs,
		logger: util.GetLogger(),
	}
}

// List returns the catalog, seeding it with DefaultCatalog on first use.
func (s *CatalogService) List(ctx context.Context) ([]models.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *CatalogService) load(ctx context.Context) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	err := s.docs.Get(ctx, catalogKey, &items)
	if errors.Is(err, docstore.ErrNotFound) {
		items = append([]models.CatalogItem(nil), DefaultCatalog...)
		if err := s.docs.Put(ctx, catalogKey, items); err != nil {
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		s.logger.Info("Catalog seeded with default products", zap.Int("count", len(items)))
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return items, nil
}

// PriceOf returns the unit price of the product with exactly this name, or 0
// when there is none. An unreadable catalog falls back to DefaultCatalog.
func (s *CatalogService) PriceOf(ctx context.Context, product string) int64 {
	items, err := s.List(ctx)
	if err != nil {
		s.logger.Error("Catalog unavailable, pricing from defaults", zap.Error(err))
		items = DefaultCatalog
	}
	for _, item := range items {
		if item.Name == product {
			return item.Price
		}
	}
	return 0
}

// Add appends a product with the next free id.
func (s *CatalogService) Add(ctx context.Context, in CatalogItemInput) (*models.CatalogItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Fields: []string{"name"}}
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var maxID int64
	for _, item := range items {
		if item.ID > maxID {
			maxID = item.ID
		}
	}
	item := models.CatalogItem{
		ID:          maxID + 1,
		Name:        name,
		Price:       price,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
	}
	if item.Image == "" {
		item.Image = fmt.Sprintf("p%d.jpg", item.ID)
	}

	if err := s.docs.Put(ctx, catalogKey, append(items, item)); err != nil {
		return nil, fmt.Errorf("failed to save catalog: %w", err)
	}
	return &item, nil
}

// Update replaces a product's fields. An empty image keeps the current one.
func (s *CatalogService) Update(ctx context.Context, id int64, in CatalogItemInput) (*models.CatalogItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Fields: []string{"name"}}
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].ID != id {
			continue
		}
		items[i].Name = name
		items[i].Price = price
		items[i].Description = strings.TrimSpace(in.Description)
		if image := strings.TrimSpace(in.Image); image != "" {
			items[i].Image = image
		}
		if err := s.docs.Put(ctx, catalogKey, items); err != nil {
			return nil, fmt.Errorf("failed to save catalog: %w", err)
		}
		updated := items[i]
		return &updated, nil
	}
	return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
}

// Delete removes a product by id.
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err := s.docs.Put(ctx, catalogKey, kept); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}

// parsePrice accepts a non-negative integer; blank means 0.
func parsePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || price < 0 {
		return 0, &ValidationError{Fields: []string{"price"}, Reason: "price must be a whole number of zero or more"}
	}
	return price, nil
}
