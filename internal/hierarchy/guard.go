// Package hierarchy enforces the structure of the employee reporting
// forest: every employee has at most one manager (reports_to), the manager
// relation never forms a cycle, and an employee that is still referenced by
// subordinates or customers is never removed.
//
// The guard owns no state. It reads the records it needs through Store
// before every decision and writes only in AssignManager. Callers are
// expected to hand it a Store bound to a single transaction; the check
// then write sequence in AssignManager is only safe when that transaction
// serialises concurrent writers of the same rows (row locks or the version
// check performed by Store.SaveEmployee).
package hierarchy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chinook-go-api/internal/models"
)

// Store is the persistence the guard depends on. FindEmployeeByID returns
// nil and no error when the employee does not exist.
type Store interface {
	FindEmployeeByID(ctx context.Context, id uint) (*models.Employee, error)
	FindEmployeesByManagerID(ctx context.Context, managerID uint) ([]models.Employee, error)
	ExistsCustomerWithSupportRep(ctx context.Context, employeeID uint) (bool, error)
	SaveEmployee(ctx context.Context, employee *models.Employee) error
	CountEmployees(ctx context.Context) (int64, error)
}

type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// AssignManager makes managerID the manager of employeeID after checking
// that the change keeps the forest acyclic.
func (g *Guard) AssignManager(ctx context.Context, employeeID, managerID uint) (models.Employee, error) {
	if employeeID == managerID {
		return models.Employee{}, invalidAssignment(employeeID)
	}

	employee, err := g.mustFind(ctx, "employee", employeeID)
	if err != nil {
		return models.Employee{}, err
	}

	manager, err := g.mustFind(ctx, "manager", managerID)
	if err != nil {
		return models.Employee{}, err
	}

	if err := g.checkAncestors(ctx, employeeID, manager); err != nil {
		return models.Employee{}, err
	}

	newManagerID := manager.ID
	employee.ReportsTo = &newManagerID
	if err := g.store.SaveEmployee(ctx, employee); err != nil {
		return models.Employee{}, err
	}

	return *employee, nil
}

// GetSubordinates returns the direct reports of managerID. An unknown
// manager yields an empty result, exactly like a manager without reports.
func (g *Guard) GetSubordinates(ctx context.Context, managerID uint) ([]models.Employee, error) {
	subordinates, err := g.store.FindEmployeesByManagerID(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("load subordinates: %w", err)
	}
	if subordinates == nil {
		subordinates = []models.Employee{}
	}
	return subordinates, nil
}

// GetHierarchy lists the subtree rooted at rootID in pre-order. Siblings
// are visited by last name, compared case-insensitively, then by id.
func (g *Guard) GetHierarchy(ctx context.Context, rootID uint) ([]models.Employee, error) {
	root, err := g.mustFind(ctx, "employee", rootID)
	if err != nil {
		return nil, err
	}

	limit, err := g.nodeLimit(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.Employee, 0)
	visited := make(map[uint]struct{})
	stack := []models.Employee{*root}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[current.ID]; seen {
			return nil, integrityViolation("employee %d is reachable twice below employee %d", current.ID, rootID)
		}
		visited[current.ID] = struct{}{}
		result = append(result, current)
		if int64(len(result)) > limit {
			return nil, integrityViolation("hierarchy below employee %d exceeds %d employees", rootID, limit)
		}

		children, err := g.store.FindEmployeesByManagerID(ctx, current.ID)
		if err != nil {
			return nil, fmt.Errorf("load subordinates of %d: %w", current.ID, err)
		}
		sortByLastName(children)

		// reversed so the first sibling is popped first
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return result, nil
}

// CanDelete reports whether employeeID can be removed without leaving
// subordinates or customers pointing at a missing row.
func (g *Guard) CanDelete(ctx context.Context, employeeID uint) error {
	if _, err := g.mustFind(ctx, "employee", employeeID); err != nil {
		return err
	}

	subordinates, err := g.GetSubordinates(ctx, employeeID)
	if err != nil {
		return err
	}
	if len(subordinates) > 0 {
		return hasSubordinates(employeeID, len(subordinates))
	}

	hasCustomers, err := g.store.ExistsCustomerWithSupportRep(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("check assigned customers: %w", err)
	}
	if hasCustomers {
		return hasAssignedCustomers(employeeID)
	}

	return nil
}

// checkAncestors walks manager pointers upward from manager. Meeting
// employeeID means the assignment closes a cycle. A pointer to a missing
// employee ends the chain. Revisiting any other node does not just stop the
// walk: the stored data already holds a cycle, so it fails with
// ErrIntegrityViolation instead of approving the assignment.
func (g *Guard) checkAncestors(ctx context.Context, employeeID uint, manager *models.Employee) error {
	limit, err := g.nodeLimit(ctx)
	if err != nil {
		return err
	}

	seen := make(map[uint]struct{})
	current := manager
	for current != nil {
		if current.ID == employeeID {
			return cycleDetected(employeeID, manager.ID)
		}
		if _, ok := seen[current.ID]; ok {
			return integrityViolation("manager chain of employee %d loops through employee %d", manager.ID, current.ID)
		}
		seen[current.ID] = struct{}{}
		if int64(len(seen)) > limit {
			return integrityViolation("manager chain of employee %d exceeds %d employees", manager.ID, limit)
		}

		if current.ReportsTo == nil {
			return nil
		}
		next, err := g.store.FindEmployeeByID(ctx, *current.ReportsTo)
		if err != nil {
			return fmt.Errorf("load manager chain: %w", err)
		}
		current = next
	}

	return nil
}

func (g *Guard) mustFind(ctx context.Context, role string, id uint) (*models.Employee, error) {
	employee, err := g.store.FindEmployeeByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", role, err)
	}
	if employee == nil {
		return nil, NotFoundError(role, id)
	}
	return employee, nil
}

func (g *Guard) nodeLimit(ctx context.Context) (int64, error) {
	count, err := g.store.CountEmployees(ctx)
	if err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return count, nil
}

func sortByLastName(employees []models.Employee) {
	sort.SliceStable(employees, func(i, j int) bool {
		a := strings.ToLower(employees[i].LastName)
		b := strings.ToLower(employees[j].LastName)
		if a != b {
			return a < b
		}
		return employees[i].ID < employees[j].ID
	})
}
