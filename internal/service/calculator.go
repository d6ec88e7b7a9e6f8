package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"toy-rental-pricing/internal/model"
)

// Названия правил в том виде, в котором их видит клиент
const (
	RuleLoyalty   = "Remise Fidélité Premium"
	RuleBulk      = "Remise Groupe"
	RulePromotion = "Promotion"
)

const (
	loyaltyRate        = 0.10
	loyaltyMinQuantity = 2
	bulkRate           = 0.15
	bulkMinQuantity    = 3

	daysPerWeek  = 7
	daysPerMonth = 30

	weeklyValueThreshold  = 1.2
	monthlyValueThreshold = 1.5
)

// CalculatePrice рассчитывает стоимость аренды со всеми скидками.
// Скидки применяются по очереди (лояльность, опт, акция), каждая от текущей цены.
// Ошибок не возвращает: некорректные входные данные дают нулевой, отрицательный или NaN результат.
func CalculatePrice(tiers model.RentalTiers, promotion *model.Promotion, tier model.Tier, opts model.PricingOptions) model.PricingResult {
	// 0 - нулевое значение Go, считается "не задано" и означает 1; отрицательные не меняются
	quantity := opts.Quantity
	if quantity == 0 {
		quantity = 1
	}
	customerType := opts.CustomerType
	if customerType == "" {
		customerType = model.CustomerRegular
	}

	unitPrice := tierPrice(tiers, tier)
	savingsPerUnit := tierSavings(tiers, tier)

	basePrice := unitPrice * float64(quantity)
	finalPrice := basePrice
	discount := 0.0
	rules := []string{}

	if customerType == model.CustomerPremium && quantity >= loyaltyMinQuantity {
		amount := finalPrice * loyaltyRate
		finalPrice -= amount
		discount += amount
		rules = append(rules, RuleLoyalty)
	}

	if quantity >= bulkMinQuantity {
		amount := finalPrice * bulkRate
		finalPrice -= amount
		discount += amount
		rules = append(rules, RuleBulk)
	}

	if promotion != nil && promotion.IsActive {
		switch promotion.Kind {
		case model.PromotionPercentage:
			amount := finalPrice * parseFloat(promotion.Value) / 100
			finalPrice -= amount
			discount += amount
		case model.PromotionFixed:
			// фиксированная сумма на весь заказ, не на единицу
			amount := parseFloat(promotion.Value)
			finalPrice -= amount
			discount += amount
		}
		label := promotion.Label
		if label == "" {
			label = RulePromotion
		}
		rules = append(rules, label)
	}

	discountPercentage := 0.0
	if basePrice != 0 {
		discountPercentage = discount / basePrice * 100
	}

	if finalPrice < 0 {
		finalPrice = 0
	}

	return model.PricingResult{
		BasePrice:          basePrice,
		FinalPrice:         finalPrice,
		Discount:           discount,
		DiscountPercentage: discountPercentage,
		AppliedRules:       rules,
		Tier:               tier,
		Savings:            savingsPerUnit * float64(quantity),
	}
}

// RecommendTier - тариф с наилучшим соотношением цены к посуточной аренде
func RecommendTier(tiers model.RentalTiers) model.Tier {
	weeklyValue, monthlyValue := 0.0, 0.0
	if tiers.DailyPrice != 0 {
		weeklyValue = tiers.DailyPrice * daysPerWeek / tiers.WeeklyPrice
		monthlyValue = tiers.DailyPrice * daysPerMonth / tiers.MonthlyPrice
	}

	switch {
	case monthlyValue > monthlyValueThreshold:
		return model.TierMonthly
	case weeklyValue > weeklyValueThreshold:
		return model.TierWeekly
	default:
		return model.TierDaily
	}
}

// BuildDisplayOptions - три варианта аренды для витрины, всегда в порядке day/week/month
func BuildDisplayOptions(tiers model.RentalTiers) []model.DisplayOption {
	weeklyOriginal := tiers.DailyPrice * daysPerWeek
	monthlyOriginal := tiers.DailyPrice * daysPerMonth

	return []model.DisplayOption{
		{
			Tier:   model.TierDaily,
			Label:  "Journalier",
			Period: "jour",
			Price:  tiers.DailyPrice,
		},
		{
			Tier:               model.TierWeekly,
			Label:              "Hebdomadaire",
			Period:             "semaine",
			Price:              tiers.WeeklyPrice,
			OriginalPrice:      weeklyOriginal,
			Discount:           weeklyOriginal - tiers.WeeklyPrice,
			DiscountPercentage: displayPercentage(tiers.DailyPrice, weeklyOriginal, tiers.WeeklyPrice),
			Popular:            true,
		},
		{
			Tier:               model.TierMonthly,
			Label:              "Mensuel",
			Period:             "mois",
			Price:              tiers.MonthlyPrice,
			OriginalPrice:      monthlyOriginal,
			Discount:           monthlyOriginal - tiers.MonthlyPrice,
			DiscountPercentage: displayPercentage(tiers.DailyPrice, monthlyOriginal, tiers.MonthlyPrice),
			Recommended:        true,
		},
	}
}

// CheckTiers проверяет рекомендуемые соотношения цен.
// Нарушения только сообщаются, цены не отклоняются.
func CheckTiers(tiers model.RentalTiers) []model.TierWarning {
	var warnings []model.TierWarning

	if tiers.DailyPrice < 0 || tiers.WeeklyPrice < 0 || tiers.MonthlyPrice < 0 {
		warnings = append(warnings, model.TierWarning{
			Code:    "negative_price",
			Message: "prices should not be negative",
		})
	}
	if tiers.WeeklyPrice > tiers.DailyPrice*daysPerWeek {
		warnings = append(warnings, model.TierWarning{
			Code:    "weekly_exceeds_daily",
			Message: fmt.Sprintf("weekly price %.2f exceeds 7 x daily price %.2f", tiers.WeeklyPrice, tiers.DailyPrice*daysPerWeek),
		})
	}
	if tiers.MonthlyPrice > tiers.WeeklyPrice*4 {
		warnings = append(warnings, model.TierWarning{
			Code:    "monthly_exceeds_weekly",
			Message: fmt.Sprintf("monthly price %.2f exceeds 4 x weekly price %.2f", tiers.MonthlyPrice, tiers.WeeklyPrice*4),
		})
	}

	return warnings
}

// tierPrice - цена за единицу; неизвестный тариф считается посуточным
func tierPrice(tiers model.RentalTiers, tier model.Tier) float64 {
	switch tier {
	case model.TierWeekly:
		return tiers.WeeklyPrice
	case model.TierMonthly:
		return tiers.MonthlyPrice
	default:
		return tiers.DailyPrice
	}
}

// tierSavings - экономия относительно посуточной аренды того же срока
func tierSavings(tiers model.RentalTiers, tier model.Tier) float64 {
	switch tier {
	case model.TierWeekly:
		return tiers.DailyPrice*daysPerWeek - tiers.WeeklyPrice
	case model.TierMonthly:
		return tiers.DailyPrice*daysPerMonth - tiers.MonthlyPrice
	default:
		return 0
	}
}

func displayPercentage(daily, original, price float64) float64 {
	if daily == 0 {
		return 0
	}
	// округление половины вверх, как на витрине
	return math.Floor((original-price)/original*100 + 0.5)
}

// parseFloat разбирает числовой префикс строки ("20%" -> 20).
// Если числа в начале нет, возвращает NaN.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}

	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			end = j
		}
	}

	// при переполнении ParseFloat возвращает ±Inf вместе с ошибкой
	v, _ := strconv.ParseFloat(s[:end], 64)
	return v
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
