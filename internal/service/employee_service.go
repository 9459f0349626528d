package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chinook-go-api/internal/apperror"
	"chinook-go-api/internal/hierarchy"
	"chinook-go-api/internal/models"
	"chinook-go-api/internal/store"
)

type EmployeeService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewEmployeeService(db *gorm.DB, logger *logrus.Logger) *EmployeeService {
	return &EmployeeService{
		db:     db,
		logger: logger,
	}
}

func (s *EmployeeService) CreateEmployee(ctx context.Context, input EmployeeInput) (EmployeeDTO, error) {
	input = normalizeInput(input)
	if err := validateInput(input); err != nil {
		return EmployeeDTO{}, err
	}

	var created models.Employee
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		employees := store.NewEmployeeStore(tx)
		if err := ensureEmailAvailable(ctx, employees, input.Email, 0); err != nil {
			return err
		}

		created = models.Employee{}
		applyInput(&created, input)
		return employees.Create(ctx, &created)
	})
	if err != nil {
		return EmployeeDTO{}, err
	}

	s.logger.WithField("employee_id", created.ID).Info("employee created")
	return employeeToDTO(created), nil
}

// UpdateEmployee replaces the profile fields of an employee. The manager
// pointer is left untouched; it changes only through AssignManager.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, employeeID uint, input EmployeeInput) (EmployeeDTO, error) {
	input = normalizeInput(input)
	if err := validateInput(input); err != nil {
		return EmployeeDTO{}, err
	}

	var updated models.Employee
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		employees := store.NewEmployeeStore(tx)
		employee, err := employees.FindEmployeeByID(ctx, employeeID)
		if err != nil {
			return err
		}
		if employee == nil {
			return hierarchy.NotFoundError("employee", employeeID)
		}

		if err := ensureEmailAvailable(ctx, employees, input.Email, employeeID); err != nil {
			return err
		}

		applyInput(employee, input)
		if err := employees.UpdateProfile(ctx, employee); err != nil {
			return err
		}
		updated = *employee
		return nil
	})
	if err != nil {
		return EmployeeDTO{}, err
	}

	return employeeToDTO(updated), nil
}

func (s *EmployeeService) DeleteEmployee(ctx context.Context, employeeID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		employees := store.NewEmployeeStore(tx).ForUpdate()
		if err := hierarchy.NewGuard(employees).CanDelete(ctx, employeeID); err != nil {
			return err
		}
		return employees.Delete(ctx, employeeID)
	})
	if err != nil {
		return err
	}

	s.logger.WithField("employee_id", employeeID).Info("employee deleted")
	return nil
}

func (s *EmployeeService) GetEmployee(ctx context.Context, employeeID uint) (EmployeeDTO, error) {
	employee, err := store.NewEmployeeStore(s.db).FindEmployeeByID(ctx, employeeID)
	if err != nil {
		return EmployeeDTO{}, err
	}
	if employee == nil {
		return EmployeeDTO{}, hierarchy.NotFoundError("employee", employeeID)
	}
	return employeeToDTO(*employee), nil
}

func (s *EmployeeService) GetEmployeeDetail(ctx context.Context, employeeID uint) (EmployeeDetailDTO, error) {
	employee, err := store.NewEmployeeStore(s.db).FindDetail(ctx, employeeID)
	if err != nil {
		return EmployeeDetailDTO{}, err
	}
	if employee == nil {
		return EmployeeDetailDTO{}, hierarchy.NotFoundError("employee", employeeID)
	}

	detail := EmployeeDetailDTO{
		EmployeeDTO:  employeeToDTO(*employee),
		Subordinates: employeesToDTO(employee.Subordinates),
		Customers:    make([]CustomerDTO, 0, len(employee.Customers)),
	}
	if employee.Manager != nil {
		manager := employeeToDTO(*employee.Manager)
		detail.Manager = &manager
	}
	for _, customer := range employee.Customers {
		detail.Customers = append(detail.Customers, customerToDTO(customer))
	}
	return detail, nil
}

func (s *EmployeeService) ListEmployees(ctx context.Context, page PageRequest) (PageResponse[EmployeeDTO], error) {
	page, order, err := normalizePage(page)
	if err != nil {
		return PageResponse[EmployeeDTO]{}, err
	}

	employees, total, err := store.NewEmployeeStore(s.db).List(ctx, store.PageQuery{
		Offset: page.Page * page.Size,
		Limit:  page.Size,
		Order:  order,
	})
	if err != nil {
		return PageResponse[EmployeeDTO]{}, err
	}

	return newPageResponse(employeesToDTO(employees), page, total), nil
}

func (s *EmployeeService) SearchEmployeesByLastName(ctx context.Context, lastName string, page PageRequest) (PageResponse[EmployeeDTO], error) {
	term, err := normalizeRequiredString(lastName, "lastName")
	if err != nil {
		return PageResponse[EmployeeDTO]{}, err
	}

	page, order, err := normalizePage(page)
	if err != nil {
		return PageResponse[EmployeeDTO]{}, err
	}

	employees, total, err := store.NewEmployeeStore(s.db).SearchByLastName(ctx, term, store.PageQuery{
		Offset: page.Page * page.Size,
		Limit:  page.Size,
		Order:  order,
	})
	if err != nil {
		return PageResponse[EmployeeDTO]{}, err
	}

	return newPageResponse(employeesToDTO(employees), page, total), nil
}

// GetSubordinates does not check that managerID exists; an unknown id gives
// the same empty list as a manager without reports.
func (s *EmployeeService) GetSubordinates(ctx context.Context, managerID uint) ([]EmployeeDTO, error) {
	subordinates, err := hierarchy.NewGuard(store.NewEmployeeStore(s.db)).GetSubordinates(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return employeesToDTO(subordinates), nil
}

func (s *EmployeeService) GetManagers(ctx context.Context) ([]EmployeeDTO, error) {
	managers, err := store.NewEmployeeStore(s.db).FindManagers(ctx)
	if err != nil {
		return nil, err
	}
	return employeesToDTO(managers), nil
}

func (s *EmployeeService) GetTopEmployeesBySales(ctx context.Context, limit int) ([]SalesRankDTO, error) {
	if limit == 0 {
		limit = defaultTopSales
	}
	if limit < 1 || limit > maxTopSales {
		return nil, apperror.New(apperror.CodeValidation, fmt.Sprintf("limit must be between 1 and %d", maxTopSales))
	}

	employees := store.NewEmployeeStore(s.db)
	ranks, err := employees.TopSales(ctx, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(ranks))
	for _, rank := range ranks {
		ids = append(ids, rank.EmployeeID)
	}
	loaded, err := employees.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Employee, len(loaded))
	for _, employee := range loaded {
		byID[employee.ID] = employee
	}

	result := make([]SalesRankDTO, 0, len(ranks))
	for _, rank := range ranks {
		employee, ok := byID[rank.EmployeeID]
		if !ok {
			continue
		}
		result = append(result, SalesRankDTO{
			Employee:   employeeToDTO(employee),
			TotalSales: rank.TotalSales.Round(2),
		})
	}
	return result, nil
}

func (s *EmployeeService) GetEmployeeCustomerCount(ctx context.Context, employeeID uint) (int64, error) {
	employees := store.NewEmployeeStore(s.db)
	employee, err := employees.FindEmployeeByID(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	if employee == nil {
		return 0, hierarchy.NotFoundError("employee", employeeID)
	}
	return employees.CountCustomers(ctx, employeeID)
}

func (s *EmployeeService) AssignManager(ctx context.Context, employeeID uint, managerID uint) (EmployeeDTO, error) {
	var updated models.Employee
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guard := hierarchy.NewGuard(store.NewEmployeeStore(tx).ForUpdate())
		employee, err := guard.AssignManager(ctx, employeeID, managerID)
		if err != nil {
			return err
		}
		updated = employee
		return nil
	})
	if err != nil {
		return EmployeeDTO{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"manager_id":  managerID,
	}).Info("manager assigned")
	return employeeToDTO(updated), nil
}

func (s *EmployeeService) GetEmployeeHierarchy(ctx context.Context, rootID uint) ([]EmployeeDTO, error) {
	var employees []models.Employee
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result, err := hierarchy.NewGuard(store.NewEmployeeStore(tx)).GetHierarchy(ctx, rootID)
		if err != nil {
			return err
		}
		employees = result
		return nil
	}, snapshotOptions(s.db.Dialector.Name())...)
	if err != nil {
		if apperror.GetReason(err) == "INTEGRITY_VIOLATION" {
			s.logger.WithField("root_id", rootID).WithError(err).Error("employee hierarchy is corrupted")
		}
		return nil, err
	}
	return employeesToDTO(employees), nil
}

// snapshotOptions makes every read of a walk see the same committed state.
// Postgres defaults to READ COMMITTED, where each statement takes a fresh
// snapshot; SQLite transactions already read from one snapshot.
func snapshotOptions(dialect string) []*sql.TxOptions {
	if dialect != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

func ensureEmailAvailable(ctx context.Context, employees *store.EmployeeStore, email *string, selfID uint) error {
	if email == nil {
		return nil
	}

	existing, err := employees.FindByEmail(ctx, *email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return apperror.Wrap(apperror.CodeConflict, "DUPLICATE_EMAIL", nil,
			fmt.Sprintf("email already in use: %s", *email))
	}
	return nil
}

func applyInput(employee *models.Employee, input EmployeeInput) {
	employee.FirstName = input.FirstName
	employee.LastName = input.LastName
	employee.Title = input.Title
	employee.BirthDate = input.BirthDate
	employee.HireDate = input.HireDate
	employee.Address = input.Address
	employee.City = input.City
	employee.State = input.State
	employee.Country = input.Country
	employee.PostalCode = input.PostalCode
	employee.Phone = input.Phone
	employee.Fax = input.Fax
	employee.Email = input.Email
}

func employeeToDTO(employee models.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         employee.ID,
		FirstName:  employee.FirstName,
		LastName:   employee.LastName,
		Title:      employee.Title,
		ReportsTo:  employee.ReportsTo,
		BirthDate:  formatDate(employee.BirthDate),
		HireDate:   formatDate(employee.HireDate),
		Address:    employee.Address,
		City:       employee.City,
		State:      employee.State,
		Country:    employee.Country,
		PostalCode: employee.PostalCode,
		Phone:      employee.Phone,
		Fax:        employee.Fax,
		Email:      employee.Email,
	}
}

func employeesToDTO(employees []models.Employee) []EmployeeDTO {
	result := make([]EmployeeDTO, 0, len(employees))
	for _, employee := range employees {
		result = append(result, employeeToDTO(employee))
	}
	return result
}

func customerToDTO(customer models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:        customer.ID,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Company:   customer.Company,
		Country:   customer.Country,
		Email:     customer.Email,
	}
}

func formatDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format("2006-01-02")
	return &formatted
}

func normalizeRequiredString(raw string, field string) (string, error) {
	value := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(value)
	if length < 1 || length > 200 {
		return "", apperror.New(apperror.CodeValidation, fmt.Sprintf("%s length must be in range 1..200", field))
	}
	return value, nil
}
