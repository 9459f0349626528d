package models

import "time"

type Employee struct {
	ID           uint       `gorm:"primaryKey"`
	LastName     string     `gorm:"type:varchar(20);not null;index"`
	FirstName    string     `gorm:"type:varchar(20);not null"`
	Title        string     `gorm:"type:varchar(30)"`
	ReportsTo    *uint      `gorm:"index"`
	Manager      *Employee  `gorm:"foreignKey:ReportsTo;references:ID"`
	Subordinates []Employee `gorm:"foreignKey:ReportsTo;references:ID"`
	Customers    []Customer `gorm:"foreignKey:SupportRepID;references:ID"`
	BirthDate    *time.Time `gorm:"type:date"`
	HireDate     *time.Time `gorm:"type:date"`
	Address      string     `gorm:"type:varchar(70)"`
	City         string     `gorm:"type:varchar(40)"`
	State        string     `gorm:"type:varchar(40)"`
	Country      string     `gorm:"type:varchar(40)"`
	PostalCode   string     `gorm:"type:varchar(10)"`
	Phone        string     `gorm:"type:varchar(24)"`
	Fax          string     `gorm:"type:varchar(24)"`
	Email        *string    `gorm:"type:varchar(60);uniqueIndex"`

	// Version is bumped on every manager change and guards the reports_to
	// write against concurrent reassignment.
	Version   uint      `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time
}
