package models

import "time"

type Client struct {
	ID         int        `gorm:"primary_key" json:"id"`
	ClientCode string     `gorm:"size:32;not null;uniqueIndex" json:"client_code"`
	ClientType ClientType `gorm:"size:20" json:"client_type"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Email      string     `gorm:"size:100" json:"email"`
	Phone      string     `gorm:"size:20" json:"phone"`
	Address    string     `gorm:"type:text" json:"address"`
	CreatedBy  int        `json:"created_by"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	ClientType ClientType `json:"client_type"`
	Name       string     `json:"name" validate:"required,max=255"`
	Email      string     `json:"email" validate:"omitempty,email,max=100"`
	Phone      string     `json:"phone" validate:"omitempty,max=20"`
	Address    string     `json:"address"`
}
