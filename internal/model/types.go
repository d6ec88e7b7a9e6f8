package model

import (
	"encoding/xml"
	"time"
)

// Tier - длительность аренды
type Tier string

const (
	TierDaily   Tier = "daily"
	TierWeekly  Tier = "weekly"
	TierMonthly Tier = "monthly"
)

// CustomerType - категория клиента
type CustomerType string

const (
	CustomerRegular CustomerType = "regular"
	CustomerPremium CustomerType = "premium"
	CustomerVIP     CustomerType = "vip"
)

// PromotionKind - вид акции
type PromotionKind string

const (
	PromotionPercentage PromotionKind = "percentage"
	PromotionFixed      PromotionKind = "fixed"
	PromotionText       PromotionKind = "text"
)

// RentalTiers - цены аренды за день, неделю и месяц (MAD)
type RentalTiers struct {
	DailyPrice   float64 `json:"dailyPrice" xml:"DailyPrice" validate:"gte=0"`
	WeeklyPrice  float64 `json:"weeklyPrice" xml:"WeeklyPrice" validate:"gte=0"`
	MonthlyPrice float64 `json:"monthlyPrice" xml:"MonthlyPrice" validate:"gte=0"`
}

// Promotion - акция, привязанная к товару.
// StartDate/EndDate хранятся, но на активность не влияют: решает только IsActive.
type Promotion struct {
	IsActive  bool          `json:"isActive" xml:"IsActive"`
	Kind      PromotionKind `json:"type" xml:"Type" validate:"omitempty,oneof=percentage fixed text"`
	Value     string        `json:"value" xml:"Value"`
	Label     string        `json:"label" xml:"Label"`
	StartDate *time.Time    `json:"startDate,omitempty" xml:"StartDate,omitempty"`
	EndDate   *time.Time    `json:"endDate,omitempty" xml:"EndDate,omitempty"`
}

// PricingOptions - количество и категория клиента
type PricingOptions struct {
	Quantity     int          `json:"quantity"`
	CustomerType CustomerType `json:"customerType"`
}

// PricingResult - итог расчета
type PricingResult struct {
	BasePrice          float64  `json:"basePrice" xml:"BasePrice"`
	FinalPrice         float64  `json:"finalPrice" xml:"FinalPrice"`
	Discount           float64  `json:"discount" xml:"Discount"`
	DiscountPercentage float64  `json:"discountPercentage" xml:"DiscountPercentage"`
	AppliedRules       []string `json:"appliedRules" xml:"AppliedRules>Rule"`
	Tier               Tier     `json:"tier" xml:"Tier"`
	Savings            float64  `json:"savings" xml:"Savings"`
}

// DisplayOption - описание тарифа для витрины
type DisplayOption struct {
	Tier               Tier    `json:"tier"`
	Label              string  `json:"label"`
	Period             string  `json:"period"`
	Price              float64 `json:"price"`
	OriginalPrice      float64 `json:"originalPrice,omitempty"`
	Discount           float64 `json:"discount,omitempty"`
	DiscountPercentage float64 `json:"discountPercentage,omitempty"`
	Popular            bool    `json:"popular,omitempty"`
	Recommended        bool    `json:"recommended,omitempty"`
}

// TierWarning - нарушение рекомендуемого соотношения цен (не ошибка)
type TierWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Item - позиция каталога
type Item struct {
	ID        string      `json:"id"`
	Slug      string      `json:"slug"`
	Name      string      `json:"name"`
	Category  string      `json:"category,omitempty"`
	Pricing   RentalTiers `json:"pricing"`
	Promotion *Promotion  `json:"promotion,omitempty"`
}

// PricingRecord - цены товара, сохраненные администратором
type PricingRecord struct {
	ItemID    string      `json:"itemId"`
	Pricing   RentalTiers `json:"pricing"`
	Promotion *Promotion  `json:"promotion,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
	UpdatedBy string      `json:"updatedBy,omitempty"`
}

// CalcRequest - запрос на расчет (HTTP, Kafka JSON/XML)
type CalcRequest struct {
	XMLName      xml.Name     `xml:"CalcRequest" json:"-"`
	RequestID    string       `xml:"RequestID,omitempty" json:"requestId,omitempty"`
	ItemID       string       `xml:"ItemID" json:"itemId"`
	Tier         Tier         `xml:"Tier" json:"tier"`
	Quantity     int          `xml:"Quantity" json:"quantity"`
	CustomerType CustomerType `xml:"CustomerType" json:"customerType,omitempty"`
}

// CalcResponse - ответ на расчет
type CalcResponse struct {
	XMLName   xml.Name      `xml:"CalcResponse" json:"-"`
	RequestID string        `xml:"RequestID,omitempty" json:"requestId,omitempty"`
	ItemID    string        `xml:"ItemID" json:"itemId"`
	ItemName  string        `xml:"ItemName,omitempty" json:"itemName,omitempty"`
	Result    PricingResult `xml:"Result" json:"result"`
	Formatted Formatted     `xml:"Formatted" json:"formatted"`
	Error     string        `xml:"Error,omitempty" json:"error,omitempty"`
}

// Formatted - суммы в виде строк для отображения (fr-MA, MAD)
type Formatted struct {
	BasePrice  string `xml:"BasePrice" json:"basePrice"`
	FinalPrice string `xml:"FinalPrice" json:"finalPrice"`
	Discount   string `xml:"Discount" json:"discount"`
	Savings    string `xml:"Savings" json:"savings"`
}

// OptionsResponse - все тарифы товара с рекомендацией
type OptionsResponse struct {
	ItemID      string          `json:"itemId"`
	Options     []DisplayOption `json:"options"`
	Recommended Tier            `json:"recommended"`
	Warnings    []TierWarning   `json:"warnings,omitempty"`
}
