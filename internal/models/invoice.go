package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID             uint            `gorm:"primaryKey"`
	CustomerID     uint            `gorm:"not null;index"`
	InvoiceDate    time.Time       `gorm:"not null"`
	BillingCountry string          `gorm:"type:varchar(40)"`
	Total          decimal.Decimal `gorm:"type:numeric(10,2);not null"`
}
