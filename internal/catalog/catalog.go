package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gosimple/slug"

	"toy-rental-pricing/internal/model"
)

var ErrItemNotFound = errors.New("item not found")

// Catalog - каталог товаров из JSON-файла.
// Reload подменяет снимок целиком; при ошибке остается предыдущий.
type Catalog struct {
	path string

	mu     sync.RWMutex
	byID   map[string]model.Item
	bySlug map[string]string
}

// Load читает каталог из файла
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// New - каталог из готового списка (без файла)
func New(items []model.Item) (*Catalog, error) {
	c := &Catalog{}
	if err := c.replace(items); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload перечитывает файл каталога
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	return c.replace(items)
}

func (c *Catalog) replace(items []model.Item) error {
	byID := make(map[string]model.Item, len(items))
	bySlug := make(map[string]string, len(items))

	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("catalog item %q has no id", item.Name)
		}
		if _, dup := byID[item.ID]; dup {
			return fmt.Errorf("duplicate catalog item id %q", item.ID)
		}
		if item.Slug == "" {
			item.Slug = slug.Make(item.Name)
		}
		item.Slug = strings.ToLower(item.Slug)

		byID[item.ID] = item
		if item.Slug != "" {
			bySlug[item.Slug] = item.ID
		}
	}

	c.mu.Lock()
	c.byID = byID
	c.bySlug = bySlug
	c.mu.Unlock()
	return nil
}

// Lookup ищет товар по ID или по slug
func (c *Catalog) Lookup(idOrSlug string) (model.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if item, ok := c.byID[idOrSlug]; ok {
		return item, nil
	}
	if id, ok := c.bySlug[strings.ToLower(idOrSlug)]; ok {
		return c.byID[id], nil
	}
	return model.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, idOrSlug)
}

// List - все товары, отсортированные по названию
func (c *Catalog) List() []model.Item {
	c.mu.RLock()
	items := make([]model.Item, 0, len(c.byID))
	for _, item := range c.byID {
		items = append(items, item)
	}
	c.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name == items[j].Name {
			return items[i].ID < items[j].ID
		}
		return items[i].Name < items[j].Name
	})
	return items
}

// Len - количество товаров
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
