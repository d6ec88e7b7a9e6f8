package service

import (
	"errors"
	"fmt"
	"math"

	"toy-rental-pricing/internal/model"
)

var (
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrInvalidPromotionValue = errors.New("promotion value is not a number")
	ErrUnknownCustomerType   = errors.New("unknown customer type")
	ErrUnknownTier           = errors.New("unknown rental tier")
)

// ValidateRequest - строгая проверка входных данных расчета.
// CalculatePrice её не вызывает; включается настройкой pricing.strict_validation.
func ValidateRequest(promotion *model.Promotion, tier model.Tier, opts model.PricingOptions) error {
	if opts.Quantity < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, opts.Quantity)
	}

	switch tier {
	case "", model.TierDaily, model.TierWeekly, model.TierMonthly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	switch opts.CustomerType {
	case "", model.CustomerRegular, model.CustomerPremium, model.CustomerVIP:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCustomerType, opts.CustomerType)
	}

	if promotion != nil && promotion.IsActive &&
		(promotion.Kind == model.PromotionPercentage || promotion.Kind == model.PromotionFixed) {
		v := parseFloat(promotion.Value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %q", ErrInvalidPromotionValue, promotion.Value)
		}
	}

	return nil
}

// IsFinite - все ли суммы результата конечны (NaN нельзя отдать в JSON)
func IsFinite(r model.PricingResult) bool {
	for _, v := range []float64{r.BasePrice, r.FinalPrice, r.Discount, r.DiscountPercentage, r.Savings} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
