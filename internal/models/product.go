package models

import "time"

// Product represents a product in the catalog.
type Product struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Price     float64   `json:"price" gorm:"not null"`
	Quantity  int64     `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// ProductChanges holds the fields supplied to a partial update.
// A nil field is left untouched.
type ProductChanges struct {
	Name     *string
	Price    *float64
	Quantity *int64
}

// IsEmpty reports whether no field was supplied.
func (c ProductChanges) IsEmpty() bool {
	return c.Name == nil && c.Price == nil && c.Quantity == nil
}

// Columns returns the supplied fields keyed by column name.
func (c ProductChanges) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 3)
	if c.Name != nil {
		cols["name"] = *c.Name
	}
	if c.Price != nil {
		cols["price"] = *c.Price
	}
	if c.Quantity != nil {
		cols["quantity"] = *c.Quantity
	}
	return cols
}

// Apply copies the supplied fields onto p.
func (c ProductChanges) Apply(p *Product) {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.Quantity != nil {
		p.Quantity = *c.Quantity
	}
}
