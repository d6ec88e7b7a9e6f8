package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toy-rental-pricing/internal/model"
)

const delta = 1e-9

func TestCalculatePrice_ZeroTiers(t *testing.T) {
	for _, tier := range []model.Tier{model.TierDaily, model.TierWeekly, model.TierMonthly} {
		for _, q := range []int{1, 2, 5} {
			res := CalculatePrice(model.RentalTiers{}, nil, tier, model.PricingOptions{Quantity: q, CustomerType: model.CustomerPremium})
			assert.Equal(t, 0.0, res.FinalPrice)
			assert.Equal(t, 0.0, res.Discount)
			assert.Equal(t, 0.0, res.DiscountPercentage)
			if q < 2 {
				assert.Empty(t, res.AppliedRules)
			}
		}
	}

	res := CalculatePrice(model.RentalTiers{}, nil, model.TierDaily, model.PricingOptions{})
	assert.NotNil(t, res.AppliedRules)
	assert.Empty(t, res.AppliedRules)
}

func TestCalculatePrice_BasePriceIsLinear(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 40, WeeklyPrice: 220, MonthlyPrice: 700}

	prev := 0.0
	for q := 1; q <= 10; q++ {
		res := CalculatePrice(tiers, nil, model.TierWeekly, model.PricingOptions{Quantity: q})
		assert.Equal(t, 220*float64(q), res.BasePrice)
		assert.Greater(t, res.BasePrice, prev)
		prev = res.BasePrice
	}
}

func TestCalculatePrice_LoyaltyRule(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 100}

	tests := []struct {
		name     string
		customer model.CustomerType
		quantity int
		applies  bool
	}{
		{"premium single", model.CustomerPremium, 1, false},
		{"premium pair", model.CustomerPremium, 2, true},
		{"premium many", model.CustomerPremium, 4, true},
		{"regular pair", model.CustomerRegular, 2, false},
		{"vip pair", model.CustomerVIP, 2, false},
		{"default customer", "", 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CalculatePrice(tiers, nil, model.TierDaily, model.PricingOptions{Quantity: tt.quantity, CustomerType: tt.customer})
			if tt.applies {
				assert.Contains(t, res.AppliedRules, RuleLoyalty)
			} else {
				assert.NotContains(t, res.AppliedRules, RuleLoyalty)
			}
		})
	}

	res := CalculatePrice(tiers, nil, model.TierDaily, model.PricingOptions{Quantity: 2, CustomerType: model.CustomerPremium})
	assert.InDelta(t, 180, res.FinalPrice, delta)
	assert.InDelta(t, 20, res.Discount, delta)
	assert.InDelta(t, 10, res.DiscountPercentage, delta)
}

func TestCalculatePrice_BulkRule(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 100}

	for _, customer := range []model.CustomerType{model.CustomerRegular, model.CustomerVIP, ""} {
		res := CalculatePrice(tiers, nil, model.TierDaily, model.PricingOptions{Quantity: 2, CustomerType: customer})
		assert.NotContains(t, res.AppliedRules, RuleBulk)

		res = CalculatePrice(tiers, nil, model.TierDaily, model.PricingOptions{Quantity: 3, CustomerType: customer})
		assert.Equal(t, []string{RuleBulk}, res.AppliedRules)
		assert.InDelta(t, 255, res.FinalPrice, delta)
		assert.InDelta(t, 45, res.Discount, delta)
	}
}

func TestCalculatePrice_DiscountsCompound(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 100}
	res := CalculatePrice(tiers, nil, model.TierDaily, model.PricingOptions{Quantity: 3, CustomerType: model.CustomerPremium})

	assert.Equal(t, 300.0, res.BasePrice)
	assert.InDelta(t, 229.5, res.FinalPrice, delta)
	assert.InDelta(t, 70.5, res.Discount, delta)
	assert.InDelta(t, 23.5, res.DiscountPercentage, delta)
	assert.Equal(t, []string{RuleLoyalty, RuleBulk}, res.AppliedRules)
	assert.Equal(t, model.TierDaily, res.Tier)
}

func TestCalculatePrice_PercentagePromotion(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 50, WeeklyPrice: 300, MonthlyPrice: 1000}
	promo := &model.Promotion{IsActive: true, Kind: model.PromotionPercentage, Value: "20"}

	res := CalculatePrice(tiers, promo, model.TierWeekly, model.PricingOptions{Quantity: 1, CustomerType: model.CustomerRegular})

	assert.Equal(t, 300.0, res.BasePrice)
	assert.InDelta(t, 60, res.Discount, delta)
	assert.InDelta(t, 240, res.FinalPrice, delta)
	assert.InDelta(t, 20, res.DiscountPercentage, delta)
	assert.Equal(t, []string{RulePromotion}, res.AppliedRules)
	assert.Equal(t, 50.0, res.Savings)

	promo.Label = "Soldes d'été"
	res = CalculatePrice(tiers, promo, model.TierWeekly, model.PricingOptions{Quantity: 1})
	assert.Equal(t, []string{"Soldes d'été"}, res.AppliedRules)
}

func TestCalculatePrice_PromotionAppliesAfterBulk(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 100}
	promo := &model.Promotion{IsActive: true, Kind: model.PromotionPercentage, Value: "10", Label: "Rentrée"}

	res := CalculatePrice(tiers, promo, model.TierDaily, model.PricingOptions{Quantity: 3, CustomerType: model.CustomerPremium})

	// 300 -> 270 -> 229.5 -> 206.55
	assert.InDelta(t, 206.55, res.FinalPrice, 1e-6)
	assert.InDelta(t, 93.45, res.Discount, 1e-6)
	assert.Equal(t, []string{RuleLoyalty, RuleBulk, "Rentrée"}, res.AppliedRules)
}

func TestCalculatePrice_FixedPromotionNotScaled(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 100}
	promo := &model.Promotion{IsActive: true, Kind: model.PromotionFixed, Value: "20"}

	res := CalculatePrice(tiers, promo, model.TierDaily, model.PricingOptions{Quantity: 5})

	bulkOnly := CalculatePrice(tiers, nil, model.TierDaily, model.PricingOptions{Quantity: 5})
	assert.InDelta(t, bulkOnly.FinalPrice-20, res.FinalPrice, delta)
	assert.InDelta(t, bulkOnly.Discount+20, res.Discount, delta)
}

func TestCalculatePrice_TextPromotionOnlyLabels(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 80}
	promo := &model.Promotion{IsActive: true, Kind: model.PromotionText, Value: "Livraison offerte", Label: "Livraison offerte"}

	res := CalculatePrice(tiers, promo, model.TierDaily, model.PricingOptions{Quantity: 1})
	assert.Equal(t, 80.0, res.FinalPrice)
	assert.Equal(t, 0.0, res.Discount)
	assert.Equal(t, []string{"Livraison offerte"}, res.AppliedRules)
}

func TestCalculatePrice_InactivePromotionIgnored(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 80}
	promo := &model.Promotion{IsActive: false, Kind: model.PromotionPercentage, Value: "50", Label: "Old"}

	res := CalculatePrice(tiers, promo, model.TierDaily, model.PricingOptions{Quantity: 1})
	assert.Equal(t, 80.0, res.FinalPrice)
	assert.Empty(t, res.AppliedRules)
}

func TestCalculatePrice_FinalPriceNeverNegative(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 10}
	promo := &model.Promotion{IsActive: true, Kind: model.PromotionFixed, Value: "500"}

	res := CalculatePrice(tiers, promo, model.TierDaily, model.PricingOptions{Quantity: 1})
	assert.Equal(t, 0.0, res.FinalPrice)
	assert.Equal(t, 500.0, res.Discount)
	assert.Equal(t, 5000.0, res.DiscountPercentage)

	promo = &model.Promotion{IsActive: true, Kind: model.PromotionPercentage, Value: "150"}
	res = CalculatePrice(tiers, promo, model.TierDaily, model.PricingOptions{Quantity: 1})
	assert.Equal(t, 0.0, res.FinalPrice)
}

func TestCalculatePrice_Savings(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 50, WeeklyPrice: 300, MonthlyPrice: 1000}

	assert.Equal(t, 0.0, CalculatePrice(tiers, nil, model.TierDaily, model.PricingOptions{Quantity: 2}).Savings)
	assert.Equal(t, 100.0, CalculatePrice(tiers, nil, model.TierWeekly, model.PricingOptions{Quantity: 2}).Savings)
	assert.Equal(t, 1500.0, CalculatePrice(tiers, nil, model.TierMonthly, model.PricingOptions{Quantity: 3}).Savings)
}

func TestCalculatePrice_DegradedInputs(t *testing.T) {
	tiers := model.RentalTiers{DailyPrice: 50, WeeklyPrice: 300, MonthlyPrice: 1000}

	t.Run("unknown tier falls back to daily", func(t *testing.T) {
		res := CalculatePrice(tiers, nil, model.Tier("hourly"), model.PricingOptions{Quantity: 1})
		assert.Equal(t, 50.0, res.BasePrice)
		assert.Equal(t, 0.0, res.Savings)
		assert.Equal(t, model.Tier("hourly"), res.Tier)
	})

	t.Run("zero quantity is treated as unset and means one", func(t *testing.T) {
		res := CalculatePrice(tiers, nil, model.TierMonthly, model.PricingOptions{})
		assert.Equal(t, 1000.0, res.BasePrice)

		res = CalculatePrice(tiers, nil, model.TierMonthly, model.PricingOptions{Quantity: 0})
		assert.Equal(t, 1000.0, res.BasePrice)
	})

	t.Run("negative quantity is not validated", func(t *testing.T) {
		res := CalculatePrice(tiers, nil, model.TierDaily, model.PricingOptions{Quantity: -2})
		assert.Equal(t, -100.0, res.BasePrice)
		assert.Equal(t, 0.0, res.FinalPrice)
	})

	t.Run("non numeric promotion value propagates NaN", func(t *testing.T) {
		promo := &model.Promotion{IsActive: true, Kind: model.PromotionPercentage, Value: "vingt"}
		res := CalculatePrice(tiers, promo, model.TierDaily, model.PricingOptions{Quantity: 1})
		assert.True(t, math.IsNaN(res.FinalPrice))
		assert.True(t, math.IsNaN(res.Discount))
		assert.False(t, IsFinite(res))
	})

	t.Run("numeric prefix is parsed", func(t *testing.T) {
		promo := &model.Promotion{IsActive: true, Kind: model.PromotionPercentage, Value: "20%"}
		res := CalculatePrice(tiers, promo, model.TierWeekly, model.PricingOptions{Quantity: 1})
		assert.InDelta(t, 240, res.FinalPrice, delta)
	})
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"20", 20},
		{" 12.5 ", 12.5},
		{"-3", -3},
		{"15dh", 15},
		{".5", 0.5},
		{"1e2", 100},
		{"2e", 2},
		{"Infinity", math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseFloat(tt.in))
		})
	}

	for _, in := range []string{"", "abc", ".", "-", "e5"} {
		assert.True(t, math.IsNaN(parseFloat(in)), in)
	}
}

func TestRecommendTier(t *testing.T) {
	tests := []struct {
		name  string
		tiers model.RentalTiers
		want  model.Tier
	}{
		{"monthly wins", model.RentalTiers{DailyPrice: 100, WeeklyPrice: 500, MonthlyPrice: 1500}, model.TierMonthly},
		{"weekly when monthly is weak", model.RentalTiers{DailyPrice: 100, WeeklyPrice: 500, MonthlyPrice: 2500}, model.TierWeekly},
		{"daily when nothing pays off", model.RentalTiers{DailyPrice: 100, WeeklyPrice: 650, MonthlyPrice: 2800}, model.TierDaily},
		{"zero daily price", model.RentalTiers{WeeklyPrice: 10, MonthlyPrice: 10}, model.TierDaily},
		{"monthly threshold is strict", model.RentalTiers{DailyPrice: 50, WeeklyPrice: 350, MonthlyPrice: 1000}, model.TierDaily},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendTier(tt.tiers))
		})
	}
}

func TestBuildDisplayOptions(t *testing.T) {
	opts := BuildDisplayOptions(model.RentalTiers{DailyPrice: 50, WeeklyPrice: 300, MonthlyPrice: 1000})
	require.Len(t, opts, 3)

	assert.Equal(t, model.TierDaily, opts[0].Tier)
	assert.Equal(t, model.TierWeekly, opts[1].Tier)
	assert.Equal(t, model.TierMonthly, opts[2].Tier)

	assert.Equal(t, 50.0, opts[0].Price)
	assert.Equal(t, 0.0, opts[0].OriginalPrice)

	assert.Equal(t, 350.0, opts[1].OriginalPrice)
	assert.Equal(t, 50.0, opts[1].Discount)
	assert.Equal(t, 14.0, opts[1].DiscountPercentage)
	assert.True(t, opts[1].Popular)
	assert.False(t, opts[1].Recommended)

	assert.Equal(t, 1500.0, opts[2].OriginalPrice)
	assert.Equal(t, 500.0, opts[2].Discount)
	assert.Equal(t, 33.0, opts[2].DiscountPercentage)
	assert.True(t, opts[2].Recommended)

	empty := BuildDisplayOptions(model.RentalTiers{WeeklyPrice: 100})
	require.Len(t, empty, 3)
	assert.Equal(t, 0.0, empty[1].DiscountPercentage)
	assert.Equal(t, -100.0, empty[1].Discount)
}

func TestCheckTiers(t *testing.T) {
	assert.Empty(t, CheckTiers(model.RentalTiers{DailyPrice: 50, WeeklyPrice: 300, MonthlyPrice: 1000}))

	warnings := CheckTiers(model.RentalTiers{DailyPrice: 10, WeeklyPrice: 100, MonthlyPrice: 500})
	require.Len(t, warnings, 2)
	assert.Equal(t, "weekly_exceeds_daily", warnings[0].Code)
	assert.Equal(t, "monthly_exceeds_weekly", warnings[1].Code)

	warnings = CheckTiers(model.RentalTiers{DailyPrice: -1})
	require.NotEmpty(t, warnings)
	assert.Equal(t, "negative_price", warnings[0].Code)
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(nil, model.TierDaily, model.PricingOptions{}))
	assert.NoError(t, ValidateRequest(&model.Promotion{IsActive: true, Kind: model.PromotionText, Value: "gratuit"}, "", model.PricingOptions{Quantity: 2}))

	err := ValidateRequest(nil, model.TierDaily, model.PricingOptions{Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	err = ValidateRequest(nil, "hourly", model.PricingOptions{Quantity: 1})
	assert.ErrorIs(t, err, ErrUnknownTier)

	err = ValidateRequest(nil, model.TierDaily, model.PricingOptions{Quantity: 1, CustomerType: "gold"})
	assert.ErrorIs(t, err, ErrUnknownCustomerType)

	err = ValidateRequest(&model.Promotion{IsActive: true, Kind: model.PromotionFixed, Value: "abc"}, model.TierDaily, model.PricingOptions{Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidPromotionValue)

	// неактивная акция не проверяется
	assert.NoError(t, ValidateRequest(&model.Promotion{Kind: model.PromotionFixed, Value: "abc"}, model.TierDaily, model.PricingOptions{}))
}
