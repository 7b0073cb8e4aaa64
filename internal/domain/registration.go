package domain

import "time"

// Registration Model: a user's travel record submitted for tax reduction
type Registration struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"index;not null" json:"user_id"`
	FullName            string    `gorm:"size:255" json:"full_name"`
	CitizenID           string    `gorm:"size:13" json:"citizen_id"`
	TaxYear             int       `gorm:"index;not null" json:"tax_year"`
	PrimaryProvinceID   uint      `gorm:"not null" json:"primary_province_id"`
	SecondaryProvinceID *uint     `json:"secondary_province_id"`
	TravelStartDate     Date      `gorm:"not null" json:"travel_start_date"`
	TravelEndDate       Date      `gorm:"not null" json:"travel_end_date"`
	TaxReductionAmount  int64     `gorm:"not null;default:0" json:"tax_reduction_amount"` // Baht
	ReceiptURLs         []string  `gorm:"type:text;serializer:json" json:"receipt_urls"`  // Ordered receipt links
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
