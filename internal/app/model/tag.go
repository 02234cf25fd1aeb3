package model

import "time"

// Tag is the relational row for a tag. Name is the identity; ID only
// exists to key the product_tags join table.
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
}

func (Tag) TableName() string {
	return "tags"
}
