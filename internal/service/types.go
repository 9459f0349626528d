package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EmployeeInput carries the editable profile of an employee. The json tags
// name fields in validation messages.
type EmployeeInput struct {
	FirstName  string     `json:"first_name" validate:"required,max=20"`
	LastName   string     `json:"last_name" validate:"required,max=20"`
	Title      string     `json:"title" validate:"max=30"`
	BirthDate  *time.Time `json:"birth_date" validate:"omitempty"`
	HireDate   *time.Time `json:"hire_date" validate:"omitempty"`
	Address    string     `json:"address" validate:"max=70"`
	City       string     `json:"city" validate:"max=40"`
	State      string     `json:"state" validate:"max=40"`
	Country    string     `json:"country" validate:"max=40"`
	PostalCode string     `json:"postal_code" validate:"max=10"`
	Phone      string     `json:"phone" validate:"max=24"`
	Fax        string     `json:"fax" validate:"max=24"`
	Email      *string    `json:"email" validate:"omitempty,email,max=60"`
}

// PageRequest is a zero-based page of a sorted listing.
type PageRequest struct {
	Page      int
	Size      int
	Sort      string
	Direction string
}

type EmployeeDTO struct {
	ID         uint    `json:"id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Title      string  `json:"title"`
	ReportsTo  *uint   `json:"reports_to"`
	BirthDate  *string `json:"birth_date,omitempty"`
	HireDate   *string `json:"hire_date,omitempty"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	Phone      string  `json:"phone"`
	Fax        string  `json:"fax"`
	Email      *string `json:"email"`
}

type CustomerDTO struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Country   string `json:"country"`
	Email     string `json:"email"`
}

type EmployeeDetailDTO struct {
	EmployeeDTO
	Manager      *EmployeeDTO  `json:"manager"`
	Subordinates []EmployeeDTO `json:"subordinates"`
	Customers    []CustomerDTO `json:"customers"`
}

type SalesRankDTO struct {
	Employee   EmployeeDTO     `json:"employee"`
	TotalSales decimal.Decimal `json:"total_sales"`
}

type PageResponse[T any] struct {
	Content       []T   `json:"content"`
	PageNumber    int   `json:"page_number"`
	PageSize      int   `json:"page_size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

type Employees interface {
	CreateEmployee(ctx context.Context, input EmployeeInput) (EmployeeDTO, error)
	UpdateEmployee(ctx context.Context, employeeID uint, input EmployeeInput) (EmployeeDTO, error)
	DeleteEmployee(ctx context.Context, employeeID uint) error
	GetEmployee(ctx context.Context, employeeID uint) (EmployeeDTO, error)
	GetEmployeeDetail(ctx context.Context, employeeID uint) (EmployeeDetailDTO, error)
	ListEmployees(ctx context.Context, page PageRequest) (PageResponse[EmployeeDTO], error)
	SearchEmployeesByLastName(ctx context.Context, lastName string, page PageRequest) (PageResponse[EmployeeDTO], error)
	GetSubordinates(ctx context.Context, managerID uint) ([]EmployeeDTO, error)
	GetManagers(ctx context.Context) ([]EmployeeDTO, error)
	GetTopEmployeesBySales(ctx context.Context, limit int) ([]SalesRankDTO, error)
	GetEmployeeCustomerCount(ctx context.Context, employeeID uint) (int64, error)
	AssignManager(ctx context.Context, employeeID uint, managerID uint) (EmployeeDTO, error)
	GetEmployeeHierarchy(ctx context.Context, rootID uint) ([]EmployeeDTO, error)
}
