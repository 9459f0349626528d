package hierarchy

import (
	"errors"
	"fmt"

	"chinook-go-api/internal/apperror"
)

var (
	ErrNotFound             = errors.New("employee not found")
	ErrInvalidAssignment    = errors.New("employee cannot be assigned as own manager")
	ErrCycleDetected        = errors.New("manager assignment would create a cycle")
	ErrHasSubordinates      = errors.New("employee has subordinates")
	ErrHasAssignedCustomers = errors.New("employee has assigned customers")
	ErrIntegrityViolation   = errors.New("employee hierarchy is corrupted")
)

// NotFoundError reports a missing employee; role names the part the id
// played in the request ("employee", "manager").
func NotFoundError(role string, id uint) error {
	return apperror.Wrap(apperror.CodeNotFound, "EMPLOYEE_NOT_FOUND", ErrNotFound,
		fmt.Sprintf("%s not found: %d", role, id))
}

func invalidAssignment(id uint) error {
	return apperror.Wrap(apperror.CodeRuleViolation, "INVALID_ASSIGNMENT", ErrInvalidAssignment,
		fmt.Sprintf("employee %d cannot be assigned as its own manager", id))
}

func cycleDetected(employeeID, managerID uint) error {
	return apperror.Wrap(apperror.CodeRuleViolation, "CYCLE_DETECTED", ErrCycleDetected,
		fmt.Sprintf("assigning manager %d to employee %d would create a cycle", managerID, employeeID))
}

func hasSubordinates(id uint, count int) error {
	return apperror.Wrap(apperror.CodeRuleViolation, "HAS_SUBORDINATES", ErrHasSubordinates,
		fmt.Sprintf("employee %d has %d subordinate(s) and cannot be deleted", id, count))
}

func hasAssignedCustomers(id uint) error {
	return apperror.Wrap(apperror.CodeRuleViolation, "HAS_ASSIGNED_CUSTOMERS", ErrHasAssignedCustomers,
		fmt.Sprintf("employee %d is support representative of customers and cannot be deleted", id))
}

func integrityViolation(format string, args ...interface{}) error {
	return apperror.Wrap(apperror.CodeInternal, "INTEGRITY_VIOLATION", ErrIntegrityViolation,
		fmt.Sprintf(format, args...))
}
