package service

import (
	"context"

	"toy-rental-pricing/internal/format"
	"toy-rental-pricing/internal/model"
)

// Recorder - учет выполненных расчетов (метрики)
type Recorder interface {
	ObserveCalculation(tier model.Tier, customerType model.CustomerType, rules []string)
}

// Quoter - расчет цены товара по запросу из любого канала (HTTP, Kafka, ISO8583)
type Quoter struct {
	admin    *PricingAdmin
	strict   bool
	recorder Recorder
}

func NewQuoter(admin *PricingAdmin, strict bool, recorder Recorder) *Quoter {
	return &Quoter{admin: admin, strict: strict, recorder: recorder}
}

// Quote находит товар и считает цену.
// В строгом режиме некорректный запрос отклоняется ошибкой ValidateRequest.
func (q *Quoter) Quote(ctx context.Context, req model.CalcRequest) (model.CalcResponse, error) {
	resp := model.CalcResponse{RequestID: req.RequestID, ItemID: req.ItemID}

	item, err := q.admin.ResolveItem(ctx, req.ItemID)
	if err != nil {
		return resp, err
	}
	resp.ItemID = item.ID
	resp.ItemName = item.Name

	opts := model.PricingOptions{Quantity: req.Quantity, CustomerType: req.CustomerType}
	if q.strict {
		if err := ValidateRequest(item.Promotion, req.Tier, opts); err != nil {
			return resp, err
		}
	}

	tier := req.Tier
	if tier == "" {
		tier = model.TierDaily
	}
	result := CalculatePrice(item.Pricing, item.Promotion, tier, opts)

	if q.recorder != nil {
		customerType := opts.CustomerType
		if customerType == "" {
			customerType = model.CustomerRegular
		}
		q.recorder.ObserveCalculation(tier, customerType, result.AppliedRules)
	}

	resp.Result = result
	resp.Formatted = model.Formatted{
		BasePrice:  format.MAD(result.BasePrice),
		FinalPrice: format.MAD(result.FinalPrice),
		Discount:   format.MAD(result.Discount),
		Savings:    format.MAD(result.Savings),
	}
	return resp, nil
}

// Options - три тарифа товара, рекомендация и предупреждения по ценам
func (q *Quoter) Options(ctx context.Context, idOrSlug string) (model.OptionsResponse, error) {
	item, err := q.admin.ResolveItem(ctx, idOrSlug)
	if err != nil {
		return model.OptionsResponse{}, err
	}
	return model.OptionsResponse{
		ItemID:      item.ID,
		Options:     BuildDisplayOptions(item.Pricing),
		Recommended: RecommendTier(item.Pricing),
		Warnings:    CheckTiers(item.Pricing),
	}, nil
}
