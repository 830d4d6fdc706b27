package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo *Repository
}

// Service exposes catalog reads, admin writes and product engagement.
type Service interface {
	Create(ctx context.Context, input CreateInput) (ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Restock(ctx context.Context, id uuid.UUID, quantity int) (ProductDTO, error)

	GetByID(ctx context.Context, id uuid.UUID) (ProductDTO, error)
	List(ctx context.Context, filter ListFilter) (ProductPageDTO, error)
	ListByCategory(ctx context.Context, category string, page pagination.Params) (ProductPageDTO, error)
	ListTrending(ctx context.Context, page pagination.Params) (ProductPageDTO, error)
	ListRecent(ctx context.Context, page pagination.Params) (ProductPageDTO, error)
	ListPopular(ctx context.Context, page pagination.Params) (ProductPageDTO, error)
	ListTopRated(ctx context.Context, page pagination.Params) (ProductPageDTO, error)
	ListOutOfStock(ctx context.Context, page pagination.Params) (ProductPageDTO, error)

	Rate(ctx context.Context, productID, userID uuid.UUID, score int) (ProductDTO, error)
	Favorite(ctx context.Context, productID, userID uuid.UUID) error
	Unfavorite(ctx context.Context, productID, userID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]ProductDTO, error)
	Comment(ctx context.Context, productID, userID uuid.UUID, body string) (CommentDTO, error)
	ListComments(ctx context.Context, productID uuid.UUID) ([]CommentDTO, error)
}

type service struct {
	repo *Repository
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{repo: params.Repo}, nil
}

// Create inserts a new listing; duplicate names surface as conflicts.
func (s *service) Create(ctx context.Context, input CreateInput) (ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.InStock < 0 {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}

	available := true
	if input.Available != nil {
		available = *input.Available
	}

	product := &models.Product{
		Name:            name,
		Description:     strings.TrimSpace(input.Description),
		Price:           input.Price,
		Category:        strings.TrimSpace(input.Category),
		ImageURL:        input.ImageURL,
		Manufacturer:    strings.TrimSpace(input.Manufacturer),
		NutritionalInfo: input.NutritionalInfo,
		SKU:             input.SKU,
		Available:       available,
		InStock:         input.InStock,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err) {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "product name or sku already in use")
		}
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return toProductDTO(product), nil
}

// Update applies the provided listing fields.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (ProductDTO, error) {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return ProductDTO{}, err
	}

	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = trimmed
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		product.Price = *input.Price
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.Manufacturer != nil {
		product.Manufacturer = strings.TrimSpace(*input.Manufacturer)
	}
	if input.NutritionalInfo != nil {
		product.NutritionalInfo = input.NutritionalInfo
	}
	if input.SKU != nil {
		product.SKU = input.SKU
	}
	if input.InStock != nil {
		if *input.InStock < 0 {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		product.InStock = *input.InStock
	}
	if input.Available != nil {
		product.Available = *input.Available
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if db.IsUniqueViolation(err) {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "product name or sku already in use")
		}
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return toProductDTO(product), nil
}

// Delete removes the listing and its dependent rows.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findProduct(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// Restock atomically increments the stock level.
func (s *service) Restock(ctx context.Context, id uuid.UUID, quantity int) (ProductDTO, error) {
	if quantity <= 0 {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	affected, err := s.repo.Restock(ctx, id, quantity)
	if err != nil {
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
	}
	if affected == 0 {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return ProductDTO{}, err
	}
	return toProductDTO(product), nil
}

// GetByID returns the listing and bumps its view counter.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (ProductDTO, error) {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return ProductDTO{}, err
	}
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment view count")
	}
	product.ViewCount++
	return toProductDTO(product), nil
}

// List returns a filtered catalog page.
func (s *service) List(ctx context.Context, filter ListFilter) (ProductPageDTO, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ProductPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return ProductPageDTO{
		Items:      toProductDTOs(rows),
		Pagination: pagination.NewMeta(pagination.Normalize(filter.Page), total),
	}, nil
}

// ListByCategory returns listings within one category.
func (s *service) ListByCategory(ctx context.Context, category string, page pagination.Params) (ProductPageDTO, error) {
	if strings.TrimSpace(category) == "" {
		return ProductPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	return s.List(ctx, ListFilter{Category: category, Page: page})
}

func (s *service) ListTrending(ctx context.Context, page pagination.Params) (ProductPageDTO, error) {
	rows, total, err := s.repo.ListTrending(ctx, pagination.Normalize(page))
	return buildPage(rows, total, page, err)
}

func (s *service) ListRecent(ctx context.Context, page pagination.Params) (ProductPageDTO, error) {
	rows, total, err := s.repo.ListRecent(ctx, pagination.Normalize(page))
	return buildPage(rows, total, page, err)
}

func (s *service) ListPopular(ctx context.Context, page pagination.Params) (ProductPageDTO, error) {
	rows, total, err := s.repo.ListPopular(ctx, pagination.Normalize(page))
	return buildPage(rows, total, page, err)
}

func (s *service) ListTopRated(ctx context.Context, page pagination.Params) (ProductPageDTO, error) {
	rows, total, err := s.repo.ListTopRated(ctx, pagination.Normalize(page))
	return buildPage(rows, total, page, err)
}

func (s *service) ListOutOfStock(ctx context.Context, page pagination.Params) (ProductPageDTO, error) {
	rows, total, err := s.repo.ListOutOfStock(ctx, pagination.Normalize(page))
	return buildPage(rows, total, page, err)
}

// Rate upserts the caller's score and recomputes the aggregates.
func (s *service) Rate(ctx context.Context, productID, userID uuid.UUID, score int) (ProductDTO, error) {
	if score < 1 || score > 5 {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "score must be between 1 and 5")
	}
	if _, err := s.findProduct(ctx, productID); err != nil {
		return ProductDTO{}, err
	}
	if err := s.repo.UpsertRating(ctx, productID, userID, score); err != nil {
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save rating")
	}
	if err := s.repo.RecomputeRating(ctx, productID); err != nil {
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute rating")
	}
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return ProductDTO{}, err
	}
	return toProductDTO(product), nil
}

// Favorite marks the product as favorited by the caller.
func (s *service) Favorite(ctx context.Context, productID, userID uuid.UUID) error {
	if _, err := s.findProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.AddFavorite(ctx, productID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	return nil
}

// Unfavorite drops the favorite regardless of prior state.
func (s *service) Unfavorite(ctx context.Context, productID, userID uuid.UUID) error {
	if err := s.repo.RemoveFavorite(ctx, productID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	return nil
}

// ListFavorites returns the caller's favorited products.
func (s *service) ListFavorites(ctx context.Context, userID uuid.UUID) ([]ProductDTO, error) {
	rows, err := s.repo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	return toProductDTOs(rows), nil
}

// Comment appends a comment to the product.
func (s *service) Comment(ctx context.Context, productID, userID uuid.UUID, body string) (CommentDTO, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "comment body is required")
	}
	if _, err := s.findProduct(ctx, productID); err != nil {
		return CommentDTO{}, err
	}
	comment := &models.ProductComment{
		ProductID: productID,
		UserID:    userID,
		Body:      trimmed,
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		return CommentDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add comment")
	}
	return CommentDTO{
		ID:        comment.ID,
		UserID:    comment.UserID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}, nil
}

// ListComments returns all comments on the product, newest first.
func (s *service) ListComments(ctx context.Context, productID uuid.UUID) ([]CommentDTO, error) {
	rows, err := s.repo.ListComments(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	items := make([]CommentDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, CommentDTO{
			ID:        row.ID,
			UserID:    row.UserID,
			Body:      row.Body,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func buildPage(rows []models.Product, total int64, page pagination.Params, err error) (ProductPageDTO, error) {
	if err != nil {
		return ProductPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return ProductPageDTO{
		Items:      toProductDTOs(rows),
		Pagination: pagination.NewMeta(pagination.Normalize(page), total),
	}, nil
}

func (s *service) findProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}
