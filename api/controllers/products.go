package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/api/responses"
	"github.com/freshlane/freshlane-backend/api/validators"
	"github.com/freshlane/freshlane-backend/internal/products"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

type createProductRequest struct {
	Name            string          `json:"name" validate:"required,min=2,max=256"`
	Description     string          `json:"description" validate:"required"`
	Price           decimal.Decimal `json:"price" validate:"required"`
	Category        string          `json:"category" validate:"required,max=128"`
	ImageURL        *string         `json:"imageUrl" validate:"omitempty,max=512"`
	Manufacturer    string          `json:"manufacturer" validate:"required,max=256"`
	NutritionalInfo *string         `json:"nutritionalInfo"`
	SKU             *string         `json:"sku" validate:"omitempty,max=64"`
	InStock         int             `json:"inStock" validate:"gte=0"`
	Available       *bool           `json:"available"`
}

type updateProductRequest struct {
	Name            *string          `json:"name" validate:"omitempty,min=2,max=256"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	Category        *string          `json:"category" validate:"omitempty,max=128"`
	ImageURL        *string          `json:"imageUrl" validate:"omitempty,max=512"`
	Manufacturer    *string          `json:"manufacturer" validate:"omitempty,max=256"`
	NutritionalInfo *string          `json:"nutritionalInfo"`
	SKU             *string          `json:"sku" validate:"omitempty,max=64"`
	InStock         *int             `json:"inStock" validate:"omitempty,gte=0"`
	Available       *bool            `json:"available"`
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type rateProductRequest struct {
	Score int `json:"score" validate:"required,gte=1,lte=5"`
}

type commentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2048"`
}

// CreateProduct handles POST /api/products.
func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Create(ctx, products.CreateInput{
			Name:            req.Name,
			Description:     req.Description,
			Price:           req.Price,
			Category:        req.Category,
			ImageURL:        req.ImageURL,
			Manufacturer:    req.Manufacturer,
			NutritionalInfo: req.NutritionalInfo,
			SKU:             req.SKU,
			InStock:         req.InStock,
			Available:       req.Available,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// UpdateProduct handles PUT /api/products/{id}.
func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Update(ctx, id, products.UpdateInput{
			Name:            req.Name,
			Description:     req.Description,
			Price:           req.Price,
			Category:        req.Category,
			ImageURL:        req.ImageURL,
			Manufacturer:    req.Manufacturer,
			NutritionalInfo: req.NutritionalInfo,
			SKU:             req.SKU,
			InStock:         req.InStock,
			Available:       req.Available,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// DeleteProduct handles DELETE /api/products/{id}.
func DeleteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteMessage(w, "product deleted")
	}
}

// RestockProduct handles PUT /api/products/{id}/restock.
func RestockProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req restockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Restock(ctx, id, req.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// GetProduct handles GET /api/products/{id}.
func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.GetByID(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ListProducts handles GET /api/products.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.List(ctx, products.ListFilter{
			Search:   r.URL.Query().Get("search"),
			Category: r.URL.Query().Get("category"),
			Page:     page,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListProductsByCategory handles GET /api/products/category/{category}.
func ListProductsByCategory(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		category := chi.URLParam(r, "category")
		result, err := svc.ListByCategory(ctx, category, page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// listHandler wraps the curated listing endpoints that differ only in
// which service method they call.
func listHandler(logg *logger.Logger, list func(r *http.Request, page pagination.Params) (products.ProductPageDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := list(r, page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// TrendingProducts handles GET /api/products/trending.
func TrendingProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(r *http.Request, page pagination.Params) (products.ProductPageDTO, error) {
		if svc == nil {
			return products.ProductPageDTO{}, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable")
		}
		return svc.ListTrending(r.Context(), page)
	})
}

// RecentProducts handles GET /api/products/recent.
func RecentProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(r *http.Request, page pagination.Params) (products.ProductPageDTO, error) {
		if svc == nil {
			return products.ProductPageDTO{}, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable")
		}
		return svc.ListRecent(r.Context(), page)
	})
}

// PopularProducts handles GET /api/products/popular.
func PopularProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(r *http.Request, page pagination.Params) (products.ProductPageDTO, error) {
		if svc == nil {
			return products.ProductPageDTO{}, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable")
		}
		return svc.ListPopular(r.Context(), page)
	})
}

// TopRatedProducts handles GET /api/products/top-rated.
func TopRatedProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(r *http.Request, page pagination.Params) (products.ProductPageDTO, error) {
		if svc == nil {
			return products.ProductPageDTO{}, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable")
		}
		return svc.ListTopRated(r.Context(), page)
	})
}

// OutOfStockProducts handles GET /api/products/out-of-stock.
func OutOfStockProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(r *http.Request, page pagination.Params) (products.ProductPageDTO, error) {
		if svc == nil {
			return products.ProductPageDTO{}, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable")
		}
		return svc.ListOutOfStock(r.Context(), page)
	})
}

// RateProduct handles POST /api/products/{id}/rate.
func RateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req rateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Rate(ctx, id, userID, req.Score)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// FavoriteProduct handles POST /api/products/{id}/favorite.
func FavoriteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Favorite(ctx, id, userID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteMessage(w, "product favorited")
	}
}

// UnfavoriteProduct handles DELETE /api/products/{id}/favorite.
func UnfavoriteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Unfavorite(ctx, id, userID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteMessage(w, "product unfavorited")
	}
}

// ListFavoriteProducts handles GET /api/products/favorites.
func ListFavoriteProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListFavorites(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// CommentProduct handles POST /api/products/{id}/comments.
func CommentProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req commentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Comment(ctx, id, userID, req.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ListProductComments handles GET /api/products/{id}/comments.
func ListProductComments(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListComments(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}
