package discounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
)

func (s *service) AddVariationDiscounts(ctx context.Context, actor access.Actor, id uuid.UUID, variationIDs []uuid.UUID) (*AssociationResult, error) {
	ids, err := requireIDs(variationIDs, "variation_ids")
	if err != nil {
		return nil, err
	}
	result := &AssociationResult{DiscountID: id}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadScoped(tx, actor, id, enums.DiscountScopeProduct)
		if err != nil {
			return err
		}
		if err := s.checkVariations(tx, discount, ids); err != nil {
			return err
		}
		inserted, err := s.repo.LinkVariations(tx, discount.ID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link variations")
		}
		result.Changed = inserted
		if !discount.IsActive {
			return nil
		}
		return s.reprice(ctx, tx, pricing.TriggerAssociation, ids, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) DeleteVariationDiscounts(ctx context.Context, actor access.Actor, id uuid.UUID, variationIDs []uuid.UUID) (*AssociationResult, error) {
	ids, err := requireIDs(variationIDs, "variation_ids")
	if err != nil {
		return nil, err
	}
	result := &AssociationResult{DiscountID: id}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadScoped(tx, actor, id, enums.DiscountScopeProduct)
		if err != nil {
			return err
		}
		removed, err := s.repo.UnlinkVariations(tx, discount.ID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink variations")
		}
		result.Changed = removed
		return s.reprice(ctx, tx, pricing.TriggerAssociation, ids, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AddCategoryDiscounts(ctx context.Context, actor access.Actor, id uuid.UUID, categoryIDs []uuid.UUID) (*AssociationResult, error) {
	ids, err := requireIDs(categoryIDs, "category_ids")
	if err != nil {
		return nil, err
	}
	result := &AssociationResult{DiscountID: id}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadScoped(tx, actor, id, enums.DiscountScopeCategory)
		if err != nil {
			return err
		}
		found, err := s.repo.ExistingCategoryIDs(tx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check categories")
		}
		if missing := missingIDs(ids, found); len(missing) > 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "categories not found").
				WithDetails(map[string]any{"category_ids": missing})
		}
		inserted, err := s.repo.LinkCategories(tx, discount.ID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link categories")
		}
		result.Changed = inserted
		if !discount.IsActive {
			return nil
		}
		return s.repriceCategories(ctx, tx, discount, ids, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) DeleteCategoryDiscounts(ctx context.Context, actor access.Actor, id uuid.UUID, categoryIDs []uuid.UUID) (*AssociationResult, error) {
	ids, err := requireIDs(categoryIDs, "category_ids")
	if err != nil {
		return nil, err
	}
	result := &AssociationResult{DiscountID: id}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadScoped(tx, actor, id, enums.DiscountScopeCategory)
		if err != nil {
			return err
		}
		removed, err := s.repo.UnlinkCategories(tx, discount.ID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink categories")
		}
		result.Changed = removed
		return s.repriceCategories(ctx, tx, discount, ids, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddCartDiscount links a CART discount; it is evaluated when the cart is read, so no
// variation is repriced.
func (s *service) AddCartDiscount(ctx context.Context, actor access.Actor, id, cartID uuid.UUID) (*AssociationResult, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_id is required")
	}
	result := &AssociationResult{DiscountID: id}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadScoped(tx, actor, id, enums.DiscountScopeCart)
		if err != nil {
			return err
		}
		exists, err := s.repo.CartExists(tx, cartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check cart")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		inserted, err := s.repo.LinkCart(tx, discount.ID, cartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link cart")
		}
		result.Changed = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) DeleteCartDiscount(ctx context.Context, actor access.Actor, id, cartID uuid.UUID) (*AssociationResult, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_id is required")
	}
	result := &AssociationResult{DiscountID: id}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.loadScoped(tx, actor, id, enums.DiscountScopeCart)
		if err != nil {
			return err
		}
		removed, err := s.repo.UnlinkCart(tx, discount.ID, cartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink cart")
		}
		result.Changed = removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) loadScoped(tx *gorm.DB, actor access.Actor, id uuid.UUID, scope enums.DiscountScope) (*models.Discount, error) {
	discount, err := s.loadAuthorized(tx, actor, id)
	if err != nil {
		return nil, err
	}
	if discount.DiscountScope != scope {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("discount scope must be %s", scope))
	}
	return discount, nil
}

// checkVariations requires every variation to exist and to be sold by the discount's shop.
func (s *service) checkVariations(tx *gorm.DB, discount *models.Discount, ids []uuid.UUID) error {
	shops, err := s.repo.VariationShops(tx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check variations")
	}
	var missing, foreign []string
	for _, id := range ids {
		shopID, ok := shops[id]
		switch {
		case !ok:
			missing = append(missing, id.String())
		case shopID != discount.ShopID:
			foreign = append(foreign, id.String())
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variations not found").
			WithDetails(map[string]any{"variation_ids": missing})
	}
	if len(foreign) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "variations belong to another shop: "+strings.Join(foreign, ", ")).
			WithDetails(map[string]any{"variation_ids": foreign})
	}
	return nil
}

func (s *service) repriceCategories(ctx context.Context, tx *gorm.DB, discount *models.Discount, categoryIDs []uuid.UUID, result *AssociationResult) error {
	variationIDs, err := s.repo.ShopVariationIDsInCategories(tx, discount.ShopID, categoryIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category variations")
	}
	return s.reprice(ctx, tx, pricing.TriggerAssociation, variationIDs, result)
}

func (s *service) reprice(ctx context.Context, tx *gorm.DB, trigger pricing.Trigger, variationIDs []uuid.UUID, result *AssociationResult) error {
	summary, err := s.repricer.RepriceVariations(ctx, tx, trigger, variationIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reprice variations")
	}
	result.Repriced = summary.Variations
	result.CartItems = summary.CartItems
	return nil
}

func requireIDs(ids []uuid.UUID, field string) ([]uuid.UUID, error) {
	out := dedupe(ids)
	if len(out) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" must not be empty")
	}
	for _, id := range out {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" contains an empty id")
		}
	}
	return out, nil
}

func missingIDs(wanted, found []uuid.UUID) []string {
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range wanted {
		if _, ok := present[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return missing
}
