package domain

import "time"

// Selection Model: a user's chosen province of interest
type Selection struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_selection_user_province,unique,priority:1" json:"user_id"`
	ProvinceID uint      `gorm:"not null;index;index:idx_selection_user_province,unique,priority:2" json:"province_id"`
	SelectedAt time.Time `gorm:"not null" json:"selected_at"`
}

// SelectionView is a selection joined with its user and province for display
type SelectionView struct {
	ID           uint      `json:"id"`
	UserID       uint      `json:"user_id"`
	Username     string    `json:"username"`
	ProvinceID   uint      `json:"province_id"`
	ProvinceName string    `json:"province_name"`
	SelectedAt   time.Time `json:"selected_at"`
	DiscountRate float64   `json:"discount_rate"`
	Category     Category  `json:"category"`
	IsPrimary    bool      `json:"is_primary"`
	IsSecondary  bool      `json:"is_secondary"`
	IsTarget     bool      `json:"is_target"`
}
