package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chinook-go-api/internal/apperror"
	"chinook-go-api/internal/hierarchy"
	"chinook-go-api/internal/logging"
	"chinook-go-api/internal/service"
)

type stubService struct {
	createEmployeeFn  func(ctx context.Context, input service.EmployeeInput) (service.EmployeeDTO, error)
	updateEmployeeFn  func(ctx context.Context, employeeID uint, input service.EmployeeInput) (service.EmployeeDTO, error)
	deleteEmployeeFn  func(ctx context.Context, employeeID uint) error
	getEmployeeFn     func(ctx context.Context, employeeID uint) (service.EmployeeDTO, error)
	getDetailFn       func(ctx context.Context, employeeID uint) (service.EmployeeDetailDTO, error)
	listEmployeesFn   func(ctx context.Context, page service.PageRequest) (service.PageResponse[service.EmployeeDTO], error)
	searchEmployeesFn func(ctx context.Context, lastName string, page service.PageRequest) (service.PageResponse[service.EmployeeDTO], error)
	getSubordinatesFn func(ctx context.Context, managerID uint) ([]service.EmployeeDTO, error)
	getManagersFn     func(ctx context.Context) ([]service.EmployeeDTO, error)
	topSalesFn        func(ctx context.Context, limit int) ([]service.SalesRankDTO, error)
	customerCountFn   func(ctx context.Context, employeeID uint) (int64, error)
	assignManagerFn   func(ctx context.Context, employeeID uint, managerID uint) (service.EmployeeDTO, error)
	getHierarchyFn    func(ctx context.Context, rootID uint) ([]service.EmployeeDTO, error)
}

func (s stubService) CreateEmployee(ctx context.Context, input service.EmployeeInput) (service.EmployeeDTO, error) {
	if s.createEmployeeFn == nil {
		return service.EmployeeDTO{}, nil
	}
	return s.createEmployeeFn(ctx, input)
}

func (s stubService) UpdateEmployee(ctx context.Context, employeeID uint, input service.EmployeeInput) (service.EmployeeDTO, error) {
	if s.updateEmployeeFn == nil {
		return service.EmployeeDTO{}, nil
	}
	return s.updateEmployeeFn(ctx, employeeID, input)
}

func (s stubService) DeleteEmployee(ctx context.Context, employeeID uint) error {
	if s.deleteEmployeeFn == nil {
		return nil
	}
	return s.deleteEmployeeFn(ctx, employeeID)
}

func (s stubService) GetEmployee(ctx context.Context, employeeID uint) (service.EmployeeDTO, error) {
	if s.getEmployeeFn == nil {
		return service.EmployeeDTO{}, nil
	}
	return s.getEmployeeFn(ctx, employeeID)
}

func (s stubService) GetEmployeeDetail(ctx context.Context, employeeID uint) (service.EmployeeDetailDTO, error) {
	if s.getDetailFn == nil {
		return service.EmployeeDetailDTO{}, nil
	}
	return s.getDetailFn(ctx, employeeID)
}

func (s stubService) ListEmployees(ctx context.Context, page service.PageRequest) (service.PageResponse[service.EmployeeDTO], error) {
	if s.listEmployeesFn == nil {
		return service.PageResponse[service.EmployeeDTO]{}, nil
	}
	return s.listEmployeesFn(ctx, page)
}

func (s stubService) SearchEmployeesByLastName(ctx context.Context, lastName string, page service.PageRequest) (service.PageResponse[service.EmployeeDTO], error) {
	if s.searchEmployeesFn == nil {
		return service.PageResponse[service.EmployeeDTO]{}, nil
	}
	return s.searchEmployeesFn(ctx, lastName, page)
}

func (s stubService) GetSubordinates(ctx context.Context, managerID uint) ([]service.EmployeeDTO, error) {
	if s.getSubordinatesFn == nil {
		return []service.EmployeeDTO{}, nil
	}
	return s.getSubordinatesFn(ctx, managerID)
}

func (s stubService) GetManagers(ctx context.Context) ([]service.EmployeeDTO, error) {
	if s.getManagersFn == nil {
		return []service.EmployeeDTO{}, nil
	}
	return s.getManagersFn(ctx)
}

func (s stubService) GetTopEmployeesBySales(ctx context.Context, limit int) ([]service.SalesRankDTO, error) {
	if s.topSalesFn == nil {
		return []service.SalesRankDTO{}, nil
	}
	return s.topSalesFn(ctx, limit)
}

func (s stubService) GetEmployeeCustomerCount(ctx context.Context, employeeID uint) (int64, error) {
	if s.customerCountFn == nil {
		return 0, nil
	}
	return s.customerCountFn(ctx, employeeID)
}

func (s stubService) AssignManager(ctx context.Context, employeeID uint, managerID uint) (service.EmployeeDTO, error) {
	if s.assignManagerFn == nil {
		return service.EmployeeDTO{}, nil
	}
	return s.assignManagerFn(ctx, employeeID, managerID)
}

func (s stubService) GetEmployeeHierarchy(ctx context.Context, rootID uint) ([]service.EmployeeDTO, error) {
	if s.getHierarchyFn == nil {
		return []service.EmployeeDTO{}, nil
	}
	return s.getHierarchyFn(ctx, rootID)
}

func serve(t *testing.T, svc stubService, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewHandler(svc, logging.Discard())
	handler.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	router := NewRouter(handler, logging.Discard(), false)

	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var payload ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&payload))
	return payload
}

func TestCreateEmployee(t *testing.T) {
	svc := stubService{
		createEmployeeFn: func(ctx context.Context, input service.EmployeeInput) (service.EmployeeDTO, error) {
			assert.Equal(t, "Andrew", input.FirstName)
			assert.Equal(t, "Adams", input.LastName)
			require.NotNil(t, input.HireDate)
			assert.Equal(t, time.Date(2002, 8, 14, 0, 0, 0, 0, time.UTC), *input.HireDate)
			return service.EmployeeDTO{ID: 1, FirstName: "Andrew", LastName: "Adams"}, nil
		},
	}

	recorder := serve(t, svc, http.MethodPost, "/api/employees",
		[]byte(`{"first_name":"Andrew","last_name":"Adams","hire_date":"2002-08-14"}`))

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "/api/employees/1", recorder.Header().Get("Location"))

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&payload))
	assert.Equal(t, "Adams", payload["last_name"])
	assert.Nil(t, payload["reports_to"])
}

func TestCreateEmployeeRejectsBadBody(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"first_name":"A","last_name":"B","password":"x"}`,
		"bad date":      `{"first_name":"A","last_name":"B","birth_date":"14/08/1962"}`,
		"trailing data": `{"first_name":"A","last_name":"B"} {}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			recorder := serve(t, stubService{}, http.MethodPost, "/api/employees", []byte(body))

			require.Equal(t, http.StatusBadRequest, recorder.Code)
			payload := decodeError(t, recorder)
			assert.Equal(t, "VALIDATION_FAILED", payload.Code)
			assert.Equal(t, http.StatusBadRequest, payload.Status)
		})
	}
}

func TestValidationErrorCarriesDetails(t *testing.T) {
	svc := stubService{
		createEmployeeFn: func(ctx context.Context, input service.EmployeeInput) (service.EmployeeDTO, error) {
			return service.EmployeeDTO{}, apperror.Validation("validation failed", []string{"field 'last_name' must not be blank"})
		},
	}

	recorder := serve(t, svc, http.MethodPost, "/api/employees", []byte(`{"first_name":"A"}`))

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	payload := decodeError(t, recorder)
	assert.Equal(t, "validation failed", payload.Message)
	assert.Equal(t, []string{"field 'last_name' must not be blank"}, payload.Details)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), payload.Timestamp)
}

func TestAssignManagerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"cycle", fmt.Errorf("assign: %w", apperror.Wrap(apperror.CodeRuleViolation, "CYCLE_DETECTED", hierarchy.ErrCycleDetected, "cycle")), http.StatusBadRequest, "CYCLE_DETECTED"},
		{"self", apperror.Wrap(apperror.CodeRuleViolation, "INVALID_ASSIGNMENT", hierarchy.ErrInvalidAssignment, "self"), http.StatusBadRequest, "INVALID_ASSIGNMENT"},
		{"missing", hierarchy.NotFoundError("manager", 9), http.StatusNotFound, "EMPLOYEE_NOT_FOUND"},
		{"stale", apperror.Wrap(apperror.CodeConflict, "STALE_EMPLOYEE", nil, "stale"), http.StatusConflict, "STALE_EMPLOYEE"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := stubService{
				assignManagerFn: func(ctx context.Context, employeeID uint, managerID uint) (service.EmployeeDTO, error) {
					assert.Equal(t, uint(1), employeeID)
					assert.Equal(t, uint(8), managerID)
					return service.EmployeeDTO{}, tc.err
				},
			}

			recorder := serve(t, svc, http.MethodPut, "/api/employees/1/manager/8", nil)

			require.Equal(t, tc.status, recorder.Code)
			payload := decodeError(t, recorder)
			assert.Equal(t, tc.code, payload.Code)
			assert.Equal(t, tc.status, payload.Status)
		})
	}
}

func TestInternalErrorHidesMessage(t *testing.T) {
	svc := stubService{
		getHierarchyFn: func(ctx context.Context, rootID uint) ([]service.EmployeeDTO, error) {
			return nil, errors.New("pq: password authentication failed")
		},
	}

	recorder := serve(t, svc, http.MethodGet, "/api/employees/1/hierarchy", nil)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "internal server error", decodeError(t, recorder).Message)
}

func TestGetHierarchy(t *testing.T) {
	svc := stubService{
		getHierarchyFn: func(ctx context.Context, rootID uint) ([]service.EmployeeDTO, error) {
			assert.Equal(t, uint(1), rootID)
			return []service.EmployeeDTO{{ID: 1}, {ID: 3}, {ID: 2}, {ID: 4}}, nil
		},
	}

	recorder := serve(t, svc, http.MethodGet, "/api/employees/1/hierarchy", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var payload []service.EmployeeDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&payload))
	ids := make([]uint, 0, len(payload))
	for _, e := range payload {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []uint{1, 3, 2, 4}, ids)
}

func TestListEmployeesQueryParsing(t *testing.T) {
	svc := stubService{
		listEmployeesFn: func(ctx context.Context, page service.PageRequest) (service.PageResponse[service.EmployeeDTO], error) {
			assert.Equal(t, service.PageRequest{Page: 2, Size: 5, Sort: "lastName", Direction: "desc"}, page)
			return service.PageResponse[service.EmployeeDTO]{Content: []service.EmployeeDTO{}, PageNumber: 2, PageSize: 5}, nil
		},
	}

	recorder := serve(t, svc, http.MethodGet, "/api/employees?page=2&size=5&sort=lastName&direction=desc", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = serve(t, svc, http.MethodGet, "/api/employees?page=two", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestFixedRoutesAreNotShadowedByID(t *testing.T) {
	var called []string
	svc := stubService{
		searchEmployeesFn: func(ctx context.Context, lastName string, page service.PageRequest) (service.PageResponse[service.EmployeeDTO], error) {
			assert.Equal(t, "pea", lastName)
			called = append(called, "search")
			return service.PageResponse[service.EmployeeDTO]{}, nil
		},
		getManagersFn: func(ctx context.Context) ([]service.EmployeeDTO, error) {
			called = append(called, "managers")
			return []service.EmployeeDTO{}, nil
		},
		topSalesFn: func(ctx context.Context, limit int) ([]service.SalesRankDTO, error) {
			assert.Equal(t, 3, limit)
			called = append(called, "top-sales")
			return []service.SalesRankDTO{{Employee: service.EmployeeDTO{ID: 4}, TotalSales: decimal.RequireFromString("833.04")}}, nil
		},
		getSubordinatesFn: func(ctx context.Context, managerID uint) ([]service.EmployeeDTO, error) {
			assert.Equal(t, uint(2), managerID)
			called = append(called, "subordinates")
			return []service.EmployeeDTO{}, nil
		},
	}

	for _, target := range []string{
		"/api/employees/search?lastName=pea",
		"/api/employees/managers",
		"/api/employees/top-sales?limit=3",
		"/api/employees/subordinates/2",
	} {
		recorder := serve(t, svc, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, recorder.Code, target)
	}
	assert.Equal(t, []string{"search", "managers", "top-sales", "subordinates"}, called)
}

func TestGetEmployeeDetailAndCustomerCount(t *testing.T) {
	manager := service.EmployeeDTO{ID: 1, LastName: "Adams"}
	svc := stubService{
		getDetailFn: func(ctx context.Context, employeeID uint) (service.EmployeeDetailDTO, error) {
			return service.EmployeeDetailDTO{
				EmployeeDTO:  service.EmployeeDTO{ID: employeeID, LastName: "Edwards"},
				Manager:      &manager,
				Subordinates: []service.EmployeeDTO{},
				Customers:    []service.CustomerDTO{{ID: 7, LastName: "Holý"}},
			}, nil
		},
		customerCountFn: func(ctx context.Context, employeeID uint) (int64, error) {
			return 21, nil
		},
	}

	recorder := serve(t, svc, http.MethodGet, "/api/employees/2", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var detail map[string]interface{}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&detail))
	assert.Equal(t, "Edwards", detail["last_name"])
	assert.Equal(t, "Adams", detail["manager"].(map[string]interface{})["last_name"])

	recorder = serve(t, svc, http.MethodGet, "/api/employees/2/customer-count", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var count customerCountResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&count))
	assert.Equal(t, customerCountResponse{EmployeeID: 2, CustomerCount: 21}, count)
}

func TestDeleteEmployee(t *testing.T) {
	svc := stubService{
		deleteEmployeeFn: func(ctx context.Context, employeeID uint) error {
			if employeeID == 2 {
				return apperror.Wrap(apperror.CodeRuleViolation, "HAS_SUBORDINATES", hierarchy.ErrHasSubordinates, "employee has subordinates")
			}
			return nil
		},
	}

	recorder := serve(t, svc, http.MethodDelete, "/api/employees/5", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = serve(t, svc, http.MethodDelete, "/api/employees/2", nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "HAS_SUBORDINATES", decodeError(t, recorder).Code)
}

func TestUpdateEmployee(t *testing.T) {
	svc := stubService{
		updateEmployeeFn: func(ctx context.Context, employeeID uint, input service.EmployeeInput) (service.EmployeeDTO, error) {
			assert.Equal(t, uint(3), employeeID)
			assert.Nil(t, input.BirthDate)
			return service.EmployeeDTO{ID: 3, FirstName: input.FirstName, LastName: input.LastName}, nil
		},
	}

	recorder := serve(t, svc, http.MethodPut, "/api/employees/3", []byte(`{"first_name":"Jane","last_name":"Peacock","birth_date":""}`))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestInvalidIDs(t *testing.T) {
	recorder := serve(t, stubService{}, http.MethodGet, "/api/employees/0", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = serve(t, stubService{}, http.MethodGet, "/api/employees/abc", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decodeError(t, recorder).Code)
}

func TestRequestIDHeader(t *testing.T) {
	recorder := serve(t, stubService{}, http.MethodGet, "/healthcheck", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewHandler(stubService{}, logging.Discard())
	router := NewRouter(handler, logging.Discard(), true)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/employees/managers", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `chinook_api_requests_total{method="GET",result="2xx",route="/api/employees/managers"}`)
}

func TestExplicitZeroSizeAndLimitAreRejected(t *testing.T) {
	svc := stubService{
		listEmployeesFn: func(ctx context.Context, page service.PageRequest) (service.PageResponse[service.EmployeeDTO], error) {
			t.Fatalf("service must not be called, got %+v", page)
			return service.PageResponse[service.EmployeeDTO]{}, nil
		},
		topSalesFn: func(ctx context.Context, limit int) ([]service.SalesRankDTO, error) {
			t.Fatalf("service must not be called, got limit %d", limit)
			return nil, nil
		},
	}

	for _, target := range []string{
		"/api/employees?size=0",
		"/api/employees?size=-3",
		"/api/employees/top-sales?limit=0",
	} {
		recorder := serve(t, svc, http.MethodGet, target, nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code, target)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, recorder).Code, target)
	}
}

func TestAbsentLimitUsesServiceDefault(t *testing.T) {
	svc := stubService{
		topSalesFn: func(ctx context.Context, limit int) ([]service.SalesRankDTO, error) {
			assert.Equal(t, 0, limit)
			return []service.SalesRankDTO{}, nil
		},
	}

	recorder := serve(t, svc, http.MethodGet, "/api/employees/top-sales", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
