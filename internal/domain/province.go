package domain

import "time"

// Category tags a province and drives its discount rate
type Category string

const (
	CategoryPrimary   Category = "primary"
	CategorySecondary Category = "secondary"
	CategoryTarget    Category = "target"
)

// Fixed discount rates, stored as fractions
const (
	PrimaryDiscountRate   = 0.10
	SecondaryDiscountRate = 0.20
)

// ParseCategory accepts only the three known categories
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryPrimary, CategorySecondary, CategoryTarget:
		return c, nil
	}
	return "", Validation("category must be one of primary, secondary, target")
}

// Derivation is the rate/flag combination implied by a category
type Derivation struct {
	DiscountRate float64
	IsPrimary    bool
	IsSecondary  bool
	IsTarget     bool
}

// Derive maps a category to its discount rate and flags. Exactly one flag is
// set. explicitRate is only honoured for target (and unrecognised) categories.
func Derive(category Category, explicitRate *float64) Derivation {
	switch category {
	case CategoryPrimary:
		return Derivation{DiscountRate: PrimaryDiscountRate, IsPrimary: true}
	case CategorySecondary:
		return Derivation{DiscountRate: SecondaryDiscountRate, IsSecondary: true}
	}
	d := Derivation{IsTarget: true}
	if explicitRate != nil {
		d.DiscountRate = *explicitRate
	}
	return d
}

// Province Model
type Province struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Category     Category  `gorm:"size:16;index;not null" json:"category"`
	DiscountRate float64   `gorm:"not null;default:0" json:"discount_rate"`
	IsPrimary    bool      `gorm:"not null;default:false" json:"is_primary"`
	IsSecondary  bool      `gorm:"not null;default:false" json:"is_secondary"`
	IsTarget     bool      `gorm:"not null;default:false" json:"is_target"`   // Category-derived
	IsSelected   bool      `gorm:"not null;default:false" json:"is_selected"` // Selected by at least one user
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Apply overwrites the stored rate and flags with d
func (p *Province) Apply(d Derivation) {
	p.DiscountRate = d.DiscountRate
	p.IsPrimary = d.IsPrimary
	p.IsSecondary = d.IsSecondary
	p.IsTarget = d.IsTarget
}

// TaxReduction is the read-only view of a province's discount
type TaxReduction struct {
	ProvinceID   uint     `json:"province_id"`
	ProvinceName string   `json:"province_name"`
	Category     Category `json:"category"`
	DiscountRate float64  `json:"discount_rate"`
	IsPrimary    bool     `json:"is_primary"`
	IsSecondary  bool     `json:"is_secondary"`
	IsTarget     bool     `json:"is_target"`
}

// TaxReductionOf builds the view for p
func TaxReductionOf(p Province) TaxReduction {
	return TaxReduction{
		ProvinceID:   p.ID,
		ProvinceName: p.Name,
		Category:     p.Category,
		DiscountRate: p.DiscountRate,
		IsPrimary:    p.IsPrimary,
		IsSecondary:  p.IsSecondary,
		IsTarget:     p.IsTarget,
	}
}
