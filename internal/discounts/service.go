package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

const (
	defaultPriority = 1
	maxPercentage   = 100
)

var hundred = decimal.NewFromInt(maxPercentage)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type discountRepository interface {
	CreateWithTx(tx *gorm.DB, discount *models.Discount) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Discount, error)
	UpdateWithTx(tx *gorm.DB, discount *models.Discount) error
	DeleteWithTx(tx *gorm.DB, id uuid.UUID) error
	ReachedVariationIDs(tx *gorm.DB, discount *models.Discount) ([]uuid.UUID, error)
	VariationShops(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	LinkVariations(tx *gorm.DB, discountID uuid.UUID, variationIDs []uuid.UUID) (int64, error)
	UnlinkVariations(tx *gorm.DB, discountID uuid.UUID, variationIDs []uuid.UUID) (int64, error)
	ExistingCategoryIDs(tx *gorm.DB, ids []uuid.UUID) ([]uuid.UUID, error)
	LinkCategories(tx *gorm.DB, discountID uuid.UUID, categoryIDs []uuid.UUID) (int64, error)
	UnlinkCategories(tx *gorm.DB, discountID uuid.UUID, categoryIDs []uuid.UUID) (int64, error)
	ShopVariationIDsInCategories(tx *gorm.DB, shopID uuid.UUID, categoryIDs []uuid.UUID) ([]uuid.UUID, error)
	CartExists(tx *gorm.DB, cartID uuid.UUID) (bool, error)
	LinkCart(tx *gorm.DB, discountID, cartID uuid.UUID) (int64, error)
	UnlinkCart(tx *gorm.DB, discountID, cartID uuid.UUID) (int64, error)
	ShopExists(tx *gorm.DB, shopID uuid.UUID) (bool, error)
	ProductInShop(tx *gorm.DB, productID, shopID uuid.UUID) (bool, error)
	List(ctx context.Context, q ListQuery) (*ListPage, error)
}

type repricer interface {
	RepriceDiscount(ctx context.Context, tx *gorm.DB, trigger pricing.Trigger, discountID uuid.UUID) (pricing.Summary, error)
	RepriceVariations(ctx context.Context, tx *gorm.DB, trigger pricing.Trigger, variationIDs []uuid.UUID) (pricing.Summary, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes discount management, associations and listings.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input CreateInput) (*DiscountDTO, error)
	Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*DiscountDTO, error)
	Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateInput) (*DiscountDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
	ToggleStatus(ctx context.Context, actor access.Actor, id uuid.UUID) (*DiscountDTO, error)
	Reprice(ctx context.Context, actor access.Actor, id uuid.UUID) (*RepriceResult, error)

	AddVariationDiscounts(ctx context.Context, actor access.Actor, id uuid.UUID, variationIDs []uuid.UUID) (*AssociationResult, error)
	DeleteVariationDiscounts(ctx context.Context, actor access.Actor, id uuid.UUID, variationIDs []uuid.UUID) (*AssociationResult, error)
	AddCategoryDiscounts(ctx context.Context, actor access.Actor, id uuid.UUID, categoryIDs []uuid.UUID) (*AssociationResult, error)
	DeleteCategoryDiscounts(ctx context.Context, actor access.Actor, id uuid.UUID, categoryIDs []uuid.UUID) (*AssociationResult, error)
	AddCartDiscount(ctx context.Context, actor access.Actor, id, cartID uuid.UUID) (*AssociationResult, error)
	DeleteCartDiscount(ctx context.Context, actor access.Actor, id, cartID uuid.UUID) (*AssociationResult, error)

	SellerList(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	AdminList(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
}

// ServiceParams wires the discount service.
type ServiceParams struct {
	Repo     discountRepository
	Tx       txRunner
	Repricer repricer
	Outbox   outboxEmitter
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     discountRepository
	tx       txRunner
	repricer repricer
	outbox   outboxEmitter
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the discount service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repricer == nil {
		return nil, fmt.Errorf("repricer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		repricer: params.Repricer,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateInput) (*DiscountDTO, error) {
	shopID, err := s.resolveShop(actor, input.ShopID)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireShop(shopID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	discount := &models.Discount{
		ShopID:             shopID,
		Name:               strings.TrimSpace(input.Name),
		Description:        trimmedOrNil(input.Description),
		DiscountType:       input.DiscountType,
		DiscountScope:      input.DiscountScope,
		Value:              input.Value,
		MinPurchase:        input.MinPurchase,
		MinItems:           input.MinItems,
		UsageLimit:         input.UsageLimit,
		StartDate:          now,
		EndDate:            input.EndDate,
		IsActive:           boolOr(input.IsActive, true),
		AllowStacking:      boolOr(input.AllowStacking, false),
		Priority:           intOr(input.Priority, defaultPriority),
		BuyQuantity:        input.BuyQuantity,
		GetQuantity:        input.GetQuantity,
		AppliedToProductID: input.AppliedToProductID,
		AutoApply:          boolOr(input.AutoApply, false),
	}
	if input.StartDate != nil {
		discount.StartDate = input.StartDate.UTC()
	}
	if discount.EndDate != nil {
		end := discount.EndDate.UTC()
		discount.EndDate = &end
	}
	if err := validateDiscount(discount); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		exists, err := s.repo.ShopExists(tx, shopID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check shop")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		if discount.AppliedToProductID != nil {
			ok, err := s.repo.ProductInShop(tx, *discount.AppliedToProductID, shopID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check target product")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "applied_to_product_id must reference a product of the shop")
			}
		}
		if err := s.repo.CreateWithTx(tx, discount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(discount, s.now().UTC()), nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*DiscountDTO, error) {
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if err := actor.RequireShop(discount.ShopID); err != nil {
		return nil, err
	}
	return FromModel(discount, s.now().UTC()), nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateInput) (*DiscountDTO, error) {
	var updated *models.Discount
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadAuthorized(tx, actor, id)
		if err != nil {
			return err
		}
		applyUpdate(discount, input)
		if err := validateDiscount(discount); err != nil {
			return err
		}
		if err := s.repo.UpdateWithTx(tx, discount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update discount")
		}
		if err := s.emitRepriceRequested(ctx, tx, actor, discount, payloads.RepricingReasonUpdated); err != nil {
			return err
		}
		updated = discount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, s.now().UTC()), nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadAuthorized(tx, actor, id)
		if err != nil {
			return err
		}
		variationIDs, err := s.repo.ReachedVariationIDs(tx, discount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount variations")
		}
		if err := s.repo.DeleteWithTx(tx, discount.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete discount")
		}
		summary, err := s.repricer.RepriceVariations(ctx, tx, pricing.TriggerDiscountDelete, variationIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reprice variations")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventDiscountDeleted,
			AggregateType: enums.AggregateDiscount,
			AggregateID:   discount.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.DiscountDeletedEvent{
				DiscountID:   discount.ID,
				ShopID:       discount.ShopID,
				VariationIDs: variationIDs,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit discount deleted")
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"discount_id": discount.ID.String(),
			"repriced":    summary.Variations,
		})
		s.logg.Info(logCtx, "discount deleted")
		return nil
	})
}

func (s *service) ToggleStatus(ctx context.Context, actor access.Actor, id uuid.UUID) (*DiscountDTO, error) {
	var toggled *models.Discount
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadAuthorized(tx, actor, id)
		if err != nil {
			return err
		}
		discount.IsActive = !discount.IsActive
		if err := s.repo.UpdateWithTx(tx, discount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle discount")
		}
		if err := s.emitRepriceRequested(ctx, tx, actor, discount, payloads.RepricingReasonToggled); err != nil {
			return err
		}
		toggled = discount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(toggled, s.now().UTC()), nil
}

func (s *service) Reprice(ctx context.Context, actor access.Actor, id uuid.UUID) (*RepriceResult, error) {
	result := &RepriceResult{DiscountID: id}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadAuthorized(tx, actor, id)
		if err != nil {
			return err
		}
		summary, err := s.repricer.RepriceDiscount(ctx, tx, pricing.TriggerManual, discount.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reprice discount")
		}
		result.Variations = summary.Variations
		result.Changed = summary.Changed
		result.CartItems = summary.CartItems
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) loadAuthorized(tx *gorm.DB, actor access.Actor, id uuid.UUID) (*models.Discount, error) {
	discount, err := s.repo.FindByIDWithTx(tx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if err := actor.RequireShop(discount.ShopID); err != nil {
		return nil, err
	}
	return discount, nil
}

func (s *service) resolveShop(actor access.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil && *requested != uuid.Nil {
		return *requested, nil
	}
	if actor.IsAdmin() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "shop_id is required")
	}
	if actor.UserID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsSeller() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	return actor.OwnedShop()
}

func (s *service) emitRepriceRequested(ctx context.Context, tx *gorm.DB, actor access.Actor, discount *models.Discount, reason payloads.RepricingReason) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventDiscountRepriceRequested,
		AggregateType: enums.AggregateDiscount,
		AggregateID:   discount.ID,
		Actor:         actor.OutboxRef(),
		Data: payloads.DiscountRepriceRequestedEvent{
			DiscountID: discount.ID,
			ShopID:     discount.ShopID,
			Reason:     reason,
			IsActive:   discount.IsActive,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit reprice request")
	}
	return nil
}

func applyUpdate(discount *models.Discount, input UpdateInput) {
	if input.Name != nil {
		discount.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		discount.Description = trimmedOrNil(input.Description)
	}
	if input.Value != nil {
		discount.Value = *input.Value
	}
	if input.MinPurchase != nil {
		discount.MinPurchase = input.MinPurchase
	}
	if input.MinItems != nil {
		discount.MinItems = input.MinItems
	}
	if input.UsageLimit != nil {
		discount.UsageLimit = input.UsageLimit
	}
	if input.EndDate != nil {
		end := input.EndDate.UTC()
		discount.EndDate = &end
	}
	if input.IsActive != nil {
		discount.IsActive = *input.IsActive
	}
	if input.AllowStacking != nil {
		discount.AllowStacking = *input.AllowStacking
	}
	if input.Priority != nil {
		discount.Priority = *input.Priority
	}
	if input.AutoApply != nil {
		discount.AutoApply = *input.AutoApply
	}
}

// validateDiscount checks the whole record, so creation and patching share the rules.
func validateDiscount(d *models.Discount) error {
	if d.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !d.DiscountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount_type")
	}
	if !d.DiscountScope.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount_scope")
	}
	if !d.Value.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "value must be positive")
	}
	if d.DiscountType == enums.DiscountTypePercentage && d.Value.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage value must be at most 100")
	}
	if d.MinPurchase != nil && d.MinPurchase.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_purchase cannot be negative")
	}
	if d.MinItems != nil && *d.MinItems < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_items cannot be negative")
	}
	if d.UsageLimit != nil && *d.UsageLimit < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage_limit cannot be negative")
	}
	if d.Priority < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "priority cannot be negative")
	}
	if d.EndDate != nil && !d.EndDate.After(d.StartDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end_date must be after start_date")
	}

	if d.DiscountType == enums.DiscountTypeBuyXGetY {
		if d.DiscountScope != enums.DiscountScopeProduct {
			return pkgerrors.New(pkgerrors.CodeValidation, "BUY_X_GET_Y discounts must use PRODUCT scope")
		}
		if d.BuyQuantity == nil || d.GetQuantity == nil || d.AppliedToProductID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "BUY_X_GET_Y requires buy_quantity, get_quantity and applied_to_product_id")
		}
		if *d.BuyQuantity <= 0 || *d.GetQuantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "buy_quantity and get_quantity must be positive")
		}
		return nil
	}
	if d.BuyQuantity != nil || d.GetQuantity != nil || d.AppliedToProductID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buy/get fields are only allowed on BUY_X_GET_Y discounts")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func intOr(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func pageQuery(params ListParams, shopID *uuid.UUID) ListQuery {
	page := params.Page.Normalize()
	q := ListQuery{
		ShopID: shopID,
		Search: params.Filters.Search,
		Limit:  page.PageSize,
		Offset: page.Offset(),
	}
	q.IsActive = params.Filters.IsActive
	if params.Filters.DiscountType != nil {
		v := string(*params.Filters.DiscountType)
		q.DiscountType = &v
	}
	if params.Filters.DiscountScope != nil {
		v := string(*params.Filters.DiscountScope)
		q.DiscountScope = &v
	}
	return q
}

func (s *service) list(ctx context.Context, params ListParams, shopID *uuid.UUID) (*ListResult, error) {
	page, err := s.repo.List(ctx, pageQuery(params, shopID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discounts")
	}
	now := s.now().UTC()
	items := make([]DiscountDTO, 0, len(page.Discounts))
	for i := range page.Discounts {
		items = append(items, *FromModel(&page.Discounts[i], now))
	}
	filters := params.Filters
	filters.ShopID = shopID
	return &ListResult{
		Discounts: items,
		Metadata: ListMeta{
			Meta:          pagination.NewMeta(params.Page, page.Total),
			ActiveCount:   page.ActiveCount,
			InactiveCount: page.InactiveCount,
		},
		Filters: filters,
	}, nil
}

func (s *service) SellerList(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	shopID, err := actor.OwnedShop()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, params, &shopID)
}

func (s *service) AdminList(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.list(ctx, params, params.Filters.ShopID)
}
