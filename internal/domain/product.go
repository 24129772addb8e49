package domain

import "time"

// Product represents one stock-keeping unit owned by one user.
// Per-owner reference uniqueness is maintained by the reconciliation
// service, not by a store constraint; pre-existing duplicates stay
// detectable instead of breaking migration.
type Product struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	OwnerID   int64     `gorm:"index:idx_owner_ref" json:"owner_id,string" form:"owner_id"`
	Name      string    `gorm:"index" json:"name" form:"name"`
	Ref       int64     `gorm:"index:idx_owner_ref" json:"ref" form:"ref"`
	Quantity  int64     `json:"quantity" form:"quantity"`
	Image     string    `gorm:"size:1024" json:"image"` // URL, "" or "none"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns table name
func (Product) TableName() string {
	return "products"
}
