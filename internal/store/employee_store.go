package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chinook-go-api/internal/apperror"
	"chinook-go-api/internal/models"
)

// profileColumns are the columns UpdateProfile writes. The manager pointer
// changes only through SaveEmployee.
var profileColumns = []string{
	"first_name", "last_name", "title", "birth_date", "hire_date",
	"address", "city", "state", "country", "postal_code",
	"phone", "fax", "email", "updated_at",
}

type PageQuery struct {
	Offset int
	Limit  int
	Order  string
}

type SalesRank struct {
	EmployeeID uint
	TotalSales decimal.Decimal
}

// EmployeeStore reads and writes employees through gorm. Build one per
// transaction when the reads must form a consistent snapshot.
type EmployeeStore struct {
	db       *gorm.DB
	lockRows bool
}

func NewEmployeeStore(db *gorm.DB) *EmployeeStore {
	return &EmployeeStore{db: db}
}

// ForUpdate returns a store that reads employee rows with SELECT ... FOR
// UPDATE where the database supports row locks. Only meaningful inside a
// transaction.
func (s *EmployeeStore) ForUpdate() *EmployeeStore {
	return &EmployeeStore{
		db:       s.db,
		lockRows: s.db.Dialector.Name() == "postgres",
	}
}

func (s *EmployeeStore) FindEmployeeByID(ctx context.Context, id uint) (*models.Employee, error) {
	query := s.db.WithContext(ctx)
	if s.lockRows {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var employee models.Employee
	if err := query.First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load employee %d: %w", id, err)
	}
	return &employee, nil
}

func (s *EmployeeStore) FindEmployeesByManagerID(ctx context.Context, managerID uint) ([]models.Employee, error) {
	var employees []models.Employee
	if err := s.db.WithContext(ctx).
		Where("reports_to = ?", managerID).
		Order("id ASC").
		Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("load employees reporting to %d: %w", managerID, err)
	}
	return employees, nil
}

func (s *EmployeeStore) ExistsCustomerWithSupportRep(ctx context.Context, employeeID uint) (bool, error) {
	count, err := s.CountCustomers(ctx, employeeID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveEmployee writes the manager pointer of employee if nobody changed the
// row since it was read; otherwise it fails with ErrStaleEmployee.
func (s *EmployeeStore) SaveEmployee(ctx context.Context, employee *models.Employee) error {
	result := s.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("id = ? AND version = ?", employee.ID, employee.Version).
		Updates(map[string]interface{}{
			"reports_to": employee.ReportsTo,
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return mapDatabaseError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.Wrap(apperror.CodeConflict, "STALE_EMPLOYEE", ErrStaleEmployee,
			fmt.Sprintf("employee %d was modified concurrently, retry the request", employee.ID))
	}

	employee.Version++
	return nil
}

func (s *EmployeeStore) CountEmployees(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Employee{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return count, nil
}

func (s *EmployeeStore) Create(ctx context.Context, employee *models.Employee) error {
	return mapDatabaseError(s.db.WithContext(ctx).Create(employee).Error)
}

func (s *EmployeeStore) UpdateProfile(ctx context.Context, employee *models.Employee) error {
	return mapDatabaseError(s.db.WithContext(ctx).
		Model(employee).
		Select(profileColumns).
		Updates(employee).Error)
}

func (s *EmployeeStore) Delete(ctx context.Context, id uint) error {
	return mapDatabaseError(s.db.WithContext(ctx).Delete(&models.Employee{}, id).Error)
}

func (s *EmployeeStore) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	var employee models.Employee
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&employee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load employee by email: %w", err)
	}
	return &employee, nil
}

// FindDetail loads an employee together with its manager, direct reports
// and the customers it supports.
func (s *EmployeeStore) FindDetail(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	err := s.db.WithContext(ctx).
		Preload("Manager").
		Preload("Subordinates", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Customers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&employee, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load employee detail %d: %w", id, err)
	}
	return &employee, nil
}

func (s *EmployeeStore) List(ctx context.Context, page PageQuery) ([]models.Employee, int64, error) {
	return s.paginate(s.db.WithContext(ctx).Model(&models.Employee{}), page)
}

func (s *EmployeeStore) SearchByLastName(ctx context.Context, term string, page PageQuery) ([]models.Employee, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	query := s.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("LOWER(last_name) LIKE ? ESCAPE '\\'", pattern)
	return s.paginate(query, page)
}

// FindManagers returns the roots of the reporting forest.
func (s *EmployeeStore) FindManagers(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	if err := s.db.WithContext(ctx).
		Where("reports_to IS NULL").
		Order("id ASC").
		Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("load managers: %w", err)
	}
	return employees, nil
}

func (s *EmployeeStore) FindByIDs(ctx context.Context, ids []uint) ([]models.Employee, error) {
	if len(ids) == 0 {
		return []models.Employee{}, nil
	}

	var employees []models.Employee
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	return employees, nil
}

func (s *EmployeeStore) CountCustomers(ctx context.Context, employeeID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("support_rep_id = ?", employeeID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count customers of %d: %w", employeeID, err)
	}
	return count, nil
}

// TopSales ranks support representatives by the invoice totals of their
// customers.
func (s *EmployeeStore) TopSales(ctx context.Context, limit int) ([]SalesRank, error) {
	var ranks []SalesRank
	if err := s.db.WithContext(ctx).
		Table("employees").
		Select("employees.id AS employee_id, SUM(invoices.total) AS total_sales").
		Joins("JOIN customers ON customers.support_rep_id = employees.id").
		Joins("JOIN invoices ON invoices.customer_id = customers.id").
		Group("employees.id").
		Order("total_sales DESC").
		Order("employees.id ASC").
		Limit(limit).
		Scan(&ranks).Error; err != nil {
		return nil, fmt.Errorf("rank employees by sales: %w", err)
	}
	return ranks, nil
}

func (s *EmployeeStore) paginate(query *gorm.DB, page PageQuery) ([]models.Employee, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	order := page.Order
	if order == "" {
		order = "id ASC"
	}

	var employees []models.Employee
	if err := query.Session(&gorm.Session{}).
		Order(order).
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&employees).Error; err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	return employees, total, nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
