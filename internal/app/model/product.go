package model

import (
	"sort"
	"time"
)

// Product is a single inventory item. Tags hold tag names and are treated
// as a set: order carries no meaning and duplicates are collapsed on save.
type Product struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	Tags     []string `json:"tags"`
	Image    string   `json:"image,omitempty"` // path or URL resolvable by the image store
}

// HasTag reports whether the product references name.
func (p *Product) HasTag(name string) bool {
	for _, t := range p.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// NormalizeTags sorts and de-duplicates tag names, dropping empty ones.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ProductRecord is the relational row for a product.
type ProductRecord struct {
	ID        uint      `gorm:"primarykey"`
	Name      string    `gorm:"not null"`
	Quantity  int       `gorm:"not null;default:0"`
	Price     float64   `gorm:"not null;default:0"`
	Image     string    `gorm:"type:text"`
	Tags      []Tag     `gorm:"many2many:product_tags;joinForeignKey:ProductID;joinReferences:TagID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProductRecord) TableName() string {
	return "products"
}

// ToProduct converts the row into the storage-agnostic shape.
func (r *ProductRecord) ToProduct() Product {
	names := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		names = append(names, t.Name)
	}
	return Product{
		ID:       int(r.ID),
		Name:     r.Name,
		Quantity: r.Quantity,
		Price:    r.Price,
		Tags:     NormalizeTags(names),
		Image:    r.Image,
	}
}
