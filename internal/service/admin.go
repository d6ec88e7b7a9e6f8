package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"toy-rental-pricing/internal/catalog"
	"toy-rental-pricing/internal/logger"
	"toy-rental-pricing/internal/model"
	"toy-rental-pricing/internal/store"
)

var (
	ErrItemNotFound   = catalog.ErrItemNotFound
	ErrInvalidPricing = errors.New("invalid pricing")
)

const (
	pricingNamespace = "admin:pricing"
	siteNamespace    = "site"
	maintenanceKey   = "maintenance"
)

// PricingInput - данные, которые администратор отправляет для товара.
// Promotion == nil оставляет акцию из каталога; чтобы снять акцию, передайте её с isActive: false.
type PricingInput struct {
	Pricing   model.RentalTiers `json:"pricing"`
	Promotion *model.Promotion  `json:"promotion,omitempty"`
}

// PricingAdmin - редактирование цен товаров и режима обслуживания.
// Записи хранятся в Store в виде JSON, каталог остается неизменным.
type PricingAdmin struct {
	catalog  *catalog.Catalog
	pricing  store.Store
	site     store.Store
	validate *validator.Validate
	now      func() time.Time
}

func NewPricingAdmin(c *catalog.Catalog, s store.Store) *PricingAdmin {
	return &PricingAdmin{
		catalog:  c,
		pricing:  store.Scoped(s, pricingNamespace),
		site:     store.Scoped(s, siteNamespace),
		validate: validator.New(),
		now:      time.Now,
	}
}

// SavePricing сохраняет цены товара. Нарушения соотношений цен
// возвращаются предупреждениями, запись при этом сохраняется.
func (a *PricingAdmin) SavePricing(ctx context.Context, idOrSlug string, input PricingInput, user string) (model.PricingRecord, []model.TierWarning, error) {
	item, err := a.catalog.Lookup(idOrSlug)
	if err != nil {
		return model.PricingRecord{}, nil, err
	}

	if err := a.validate.Struct(input); err != nil {
		return model.PricingRecord{}, nil, fmt.Errorf("%w: %v", ErrInvalidPricing, err)
	}
	if p := input.Promotion; p != nil && (p.Kind == model.PromotionPercentage || p.Kind == model.PromotionFixed) {
		if v := parseFloat(p.Value); math.IsNaN(v) || math.IsInf(v, 0) {
			return model.PricingRecord{}, nil, fmt.Errorf("%w: promotion value %q is not a number", ErrInvalidPricing, p.Value)
		}
	}

	record := model.PricingRecord{
		ItemID:    item.ID,
		Pricing:   input.Pricing,
		Promotion: input.Promotion,
		UpdatedAt: a.now().UTC(),
		UpdatedBy: user,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return model.PricingRecord{}, nil, err
	}
	if err := a.pricing.Set(ctx, item.ID, string(data)); err != nil {
		return model.PricingRecord{}, nil, fmt.Errorf("ошибка при сохранении цен: %w", err)
	}

	warnings := CheckTiers(input.Pricing)
	logger.Info("Цены товара обновлены", "item", item.ID, "user", user, "warnings", len(warnings))
	return record, warnings, nil
}

// GetPricing возвращает сохраненную запись; found=false, если цены из каталога
func (a *PricingAdmin) GetPricing(ctx context.Context, idOrSlug string) (model.PricingRecord, bool, error) {
	item, err := a.catalog.Lookup(idOrSlug)
	if err != nil {
		return model.PricingRecord{}, false, err
	}
	return a.record(ctx, item.ID)
}

// DeletePricing удаляет запись, товар возвращается к ценам каталога
func (a *PricingAdmin) DeletePricing(ctx context.Context, idOrSlug string) error {
	item, err := a.catalog.Lookup(idOrSlug)
	if err != nil {
		return err
	}
	if err := a.pricing.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("ошибка при удалении цен: %w", err)
	}
	logger.Info("Цены товара сброшены к каталогу", "item", item.ID)
	return nil
}

// ResolveItem - товар каталога с учетом изменений администратора
func (a *PricingAdmin) ResolveItem(ctx context.Context, idOrSlug string) (model.Item, error) {
	item, err := a.catalog.Lookup(idOrSlug)
	if err != nil {
		return model.Item{}, err
	}

	record, found, err := a.record(ctx, item.ID)
	if err != nil {
		return model.Item{}, err
	}
	if found {
		item.Pricing = record.Pricing
		if record.Promotion != nil {
			item.Promotion = record.Promotion
		}
	}
	return item, nil
}

// ListItems - весь каталог с учетом изменений
func (a *PricingAdmin) ListItems(ctx context.Context) ([]model.Item, error) {
	items := a.catalog.List()
	for i := range items {
		resolved, err := a.ResolveItem(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i] = resolved
	}
	return items, nil
}

// SetMaintenance включает или выключает режим обслуживания сайта
func (a *PricingAdmin) SetMaintenance(ctx context.Context, enabled bool) error {
	if err := a.site.Set(ctx, maintenanceKey, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("ошибка при сохранении режима обслуживания: %w", err)
	}
	logger.Info("Режим обслуживания изменен", "enabled", enabled)
	return nil
}

// Maintenance - включен ли режим обслуживания
func (a *PricingAdmin) Maintenance(ctx context.Context) (bool, error) {
	v, found, err := a.site.Get(ctx, maintenanceKey)
	if err != nil || !found {
		return false, err
	}
	enabled, _ := strconv.ParseBool(v)
	return enabled, nil
}

func (a *PricingAdmin) record(ctx context.Context, itemID string) (model.PricingRecord, bool, error) {
	data, found, err := a.pricing.Get(ctx, itemID)
	if err != nil {
		return model.PricingRecord{}, false, fmt.Errorf("ошибка при получении цен: %w", err)
	}
	if !found {
		return model.PricingRecord{}, false, nil
	}

	var record model.PricingRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return model.PricingRecord{}, false, fmt.Errorf("поврежденная запись цен %s: %w", itemID, err)
	}
	return record, true, nil
}
