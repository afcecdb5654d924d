package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/api/middleware"
	"github.com/angelmondragon/threadmart-backend/api/responses"
	"github.com/angelmondragon/threadmart-backend/api/validators"
	productsvc "github.com/angelmondragon/threadmart-backend/internal/products"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/types"
)

const (
	productIDParam   = "productId"
	variationIDParam = "variationId"
)

type variationRequest struct {
	SKU        string                    `json:"sku" validate:"required,max=64"`
	Price      decimal.Decimal           `json:"price"`
	Stock      int                       `json:"stock" validate:"gte=0"`
	Attributes types.VariationAttributes `json:"attributes"`
}

func (v variationRequest) toInput() productsvc.VariationInput {
	return productsvc.VariationInput{
		SKU:        strings.TrimSpace(v.SKU),
		Price:      v.Price,
		Stock:      v.Stock,
		Attributes: v.Attributes,
	}
}

type createProductRequest struct {
	ShopID      *uuid.UUID         `json:"shop_id,omitempty"`
	CategoryID  uuid.UUID          `json:"category_id" validate:"required"`
	Name        string             `json:"name" validate:"required,max=255"`
	Description *string            `json:"description,omitempty"`
	IsActive    *bool              `json:"is_active,omitempty"`
	Variations  []variationRequest `json:"variations,omitempty" validate:"omitempty,dive"`
}

func (p createProductRequest) toInput() productsvc.CreateProductInput {
	variations := make([]productsvc.VariationInput, 0, len(p.Variations))
	for _, v := range p.Variations {
		variations = append(variations, v.toInput())
	}
	return productsvc.CreateProductInput{
		ShopID:      p.ShopID,
		CategoryID:  p.CategoryID,
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		IsActive:    p.IsActive,
		Variations:  variations,
	}
}

type updateProductRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

type updateVariationRequest struct {
	SKU        *string                    `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	Price      *decimal.Decimal           `json:"price,omitempty"`
	Stock      *int                       `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Attributes *types.VariationAttributes `json:"attributes,omitempty"`
}

// ProductList is the public catalog listing.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := parseProductListInput(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListProducts(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductGet returns a product; inactive products are visible only to their shop and admins.
func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.GetProduct(ctx, middleware.ActorFromContext(ctx), productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.CreateProduct(ctx, middleware.ActorFromContext(ctx), payload.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(ctx, middleware.ActorFromContext(ctx), productID, productsvc.UpdateProductInput{
			Name:        payload.Name,
			Description: payload.Description,
			CategoryID:  payload.CategoryID,
			IsActive:    payload.IsActive,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteProduct(ctx, middleware.ActorFromContext(ctx), productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// VariationAdd appends a variation to an existing product.
func VariationAdd(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload variationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		variation, err := svc.AddVariation(ctx, middleware.ActorFromContext(ctx), productID, payload.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, variation)
	}
}

// VariationUpdate patches a variation; a price change reprices it in the same transaction.
func VariationUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		variationID, err := validators.ParseUUIDParam(r, variationIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateVariationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		variation, err := svc.UpdateVariation(ctx, middleware.ActorFromContext(ctx), variationID, productsvc.UpdateVariationInput{
			SKU:        payload.SKU,
			Price:      payload.Price,
			Stock:      payload.Stock,
			Attributes: payload.Attributes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, variation)
	}
}

func VariationDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		variationID, err := validators.ParseUUIDParam(r, variationIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteVariation(ctx, middleware.ActorFromContext(ctx), variationID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func parseProductListInput(r *http.Request) (productsvc.ListProductsInput, error) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	shopID, err := validators.ParseQueryUUID(r, "shop_id")
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	categoryID, err := validators.ParseQueryUUID(r, "category_id")
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	onSale, err := validators.ParseQueryBool(r, "on_sale")
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	priceMin, err := validators.ParseQueryDecimal(r, "price_min")
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	priceMax, err := validators.ParseQueryDecimal(r, "price_max")
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	if priceMin != nil && priceMax != nil && priceMin.GreaterThan(*priceMax) {
		return productsvc.ListProductsInput{}, pkgerrors.New(pkgerrors.CodeValidation, "price_min must not exceed price_max")
	}

	return productsvc.ListProductsInput{
		Filters: productsvc.ProductListFilters{
			ShopID:     shopID,
			CategoryID: categoryID,
			OnSale:     onSale,
			PriceMin:   priceMin,
			PriceMax:   priceMax,
			Query:      strings.TrimSpace(r.URL.Query().Get("q")),
		},
		Pagination: page,
	}, nil
}
