package service

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"chinook-go-api/internal/apperror"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	defaultTopSales = 5
	maxTopSales     = 50
	maxRowOffset    = math.MaxInt32
)

// sortColumns maps the sort keys accepted by listings to columns.
var sortColumns = map[string]string{
	"id":          "id",
	"first_name":  "first_name",
	"firstName":   "first_name",
	"last_name":   "last_name",
	"lastName":    "last_name",
	"title":       "title",
	"hire_date":   "hire_date",
	"hireDate":    "hire_date",
	"city":        "city",
	"country":     "country",
	"email":       "email",
	"postal_code": "postal_code",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func normalizeInput(input EmployeeInput) EmployeeInput {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Title = strings.TrimSpace(input.Title)
	input.Address = strings.TrimSpace(input.Address)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.Country = strings.TrimSpace(input.Country)
	input.PostalCode = strings.TrimSpace(input.PostalCode)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Fax = strings.TrimSpace(input.Fax)
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		input.Email = &email
		if email == "" {
			input.Email = nil
		}
	}
	return input
}

func validateInput(input EmployeeInput) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("validate employee: %w", err)
	}

	details := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		details = append(details, describeFieldError(fe))
	}
	return apperror.Validation("validation failed", details)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' must not be blank", fe.Field())
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address (rejected value: %v)", fe.Field(), fe.Value())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("field '%s' failed '%s' rule", fe.Field(), fe.Tag())
	}
}

func normalizePage(page PageRequest) (PageRequest, string, error) {
	if page.Page < 0 {
		return PageRequest{}, "", apperror.New(apperror.CodeValidation, "page must not be negative")
	}
	if page.Size == 0 {
		page.Size = defaultPageSize
	}
	if page.Size < 1 || page.Size > maxPageSize {
		return PageRequest{}, "", apperror.New(apperror.CodeValidation, fmt.Sprintf("size must be between 1 and %d", maxPageSize))
	}
	if page.Page > maxRowOffset/page.Size {
		return PageRequest{}, "", apperror.New(apperror.CodeValidation, fmt.Sprintf("page must be at most %d for size %d", maxRowOffset/page.Size, page.Size))
	}

	if page.Sort == "" {
		page.Sort = "id"
	}
	column, ok := sortColumns[page.Sort]
	if !ok {
		return PageRequest{}, "", apperror.New(apperror.CodeValidation, fmt.Sprintf("cannot sort by %q", page.Sort))
	}

	direction := "ASC"
	switch strings.ToLower(page.Direction) {
	case "", "asc":
		page.Direction = "asc"
	case "desc":
		page.Direction = "desc"
		direction = "DESC"
	default:
		return PageRequest{}, "", apperror.New(apperror.CodeValidation, "direction must be asc or desc")
	}

	order := column + " " + direction
	if column != "id" {
		order += ", id ASC"
	}
	return page, order, nil
}

func newPageResponse[T any](content []T, page PageRequest, total int64) PageResponse[T] {
	totalPages := int((total + int64(page.Size) - 1) / int64(page.Size))
	return PageResponse[T]{
		Content:       content,
		PageNumber:    page.Page,
		PageSize:      page.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page.Page == 0,
		Last:          page.Page+1 >= totalPages,
	}
}
