package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryIdentityPhoto 证件照类活动，确认后生成学生档案
const CategoryIdentityPhoto = "identity_photo"

// Activity 拍摄活动（商品目录）
type Activity struct {
	ID            uint64          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	Category      string          `db:"category" json:"category"`
	IdentityPhoto bool            `db:"identity_photo" json:"identity_photo"`
	Price         decimal.Decimal `db:"price" json:"price"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Photographer 摄影师
type Photographer struct {
	ID        uint64    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
