package label

import (
	"strconv"
	"strings"
)

// Item is the inventory record an item label binds against.
type Item struct {
	ItemID      string  `yaml:"itemId" json:"itemId"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Category    string  `yaml:"category" json:"category"`
	SKU         string  `yaml:"sku" json:"sku"`
	Barcode     string  `yaml:"barcode" json:"barcode"`
	Metal       string  `yaml:"metal" json:"metal"`
	Purity      string  `yaml:"purity" json:"purity"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Price       float64 `yaml:"price" json:"price"`
	Currency    string  `yaml:"currency" json:"currency"`
}

// Field returns the printable value of a named field.
func (i *Item) Field(name string) (string, bool) {
	switch fieldKey(name) {
	case "itemid", "id":
		return i.ItemID, true
	case "name":
		return i.Name, true
	case "description":
		return i.Description, true
	case "category":
		return i.Category, true
	case "sku":
		return i.SKU, true
	case "barcode":
		return i.Barcode, true
	case "metal":
		return i.Metal, true
	case "purity":
		return i.Purity, true
	case "weight":
		return formatNumber(i.Weight, -1), true
	case "price":
		return formatNumber(i.Price, 2), true
	case "currency":
		return i.Currency, true
	}
	return "", false
}

// Store is the shop record printed on labels and receipts.
type Store struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
	Phone   string `yaml:"phone" json:"phone"`
	Email   string `yaml:"email" json:"email"`
	Website string `yaml:"website" json:"website"`
	TaxID   string `yaml:"taxId" json:"taxId"`
}

// Field returns the printable value of a named field.
func (s *Store) Field(name string) (string, bool) {
	switch fieldKey(name) {
	case "name":
		return s.Name, true
	case "address":
		return s.Address, true
	case "phone":
		return s.Phone, true
	case "email":
		return s.Email, true
	case "website":
		return s.Website, true
	case "taxid":
		return s.TaxID, true
	}
	return "", false
}

// DataContext is the runtime data a template's bindings resolve against.
// Nil entities are treated as absent. The encoder never mutates it.
type DataContext struct {
	Item   *Item             `yaml:"item" json:"item"`
	Store  *Store            `yaml:"store" json:"store"`
	Custom map[string]string `yaml:"custom" json:"custom"`
}

// Resolve looks up a binding of the form "entity.field". Unknown entities,
// unknown fields, absent entities, empty values and bindings without an
// entity prefix all yield fallback.
func (c DataContext) Resolve(binding, fallback string) string {
	entity, field, ok := strings.Cut(strings.TrimSpace(binding), ".")
	if !ok || entity == "" || field == "" {
		return fallback
	}

	var (
		v     string
		found bool
	)
	switch strings.ToLower(entity) {
	case "item":
		if c.Item != nil {
			v, found = c.Item.Field(field)
		}
	case "store":
		if c.Store != nil {
			v, found = c.Store.Field(field)
		}
	case "custom":
		v, found = c.Custom[field]
	}
	if !found || v == "" {
		return fallback
	}
	return v
}

func fieldKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

func formatNumber(f float64, prec int) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', prec, 64)
}
