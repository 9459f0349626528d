package models

import "time"

type Customer struct {
	ID           uint      `gorm:"primaryKey"`
	FirstName    string    `gorm:"type:varchar(40);not null"`
	LastName     string    `gorm:"type:varchar(20);not null"`
	Company      string    `gorm:"type:varchar(80)"`
	Country      string    `gorm:"type:varchar(40)"`
	Email        string    `gorm:"type:varchar(60);not null"`
	SupportRepID *uint     `gorm:"index"`
	Invoices     []Invoice `gorm:"foreignKey:CustomerID;references:ID"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}
