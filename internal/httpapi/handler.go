package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"chinook-go-api/internal/apperror"
	"chinook-go-api/internal/service"
)

type Handler struct {
	service service.Employees
	logger  *logrus.Logger
	now     func() time.Time
}

func NewHandler(svc service.Employees, logger *logrus.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
		now:     time.Now,
	}
}

// Register mounts the employee routes. Fixed segments are registered before
// /{id} so they are not shadowed.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/employees").Subrouter()

	api.HandleFunc("", h.handleListEmployees).Methods(http.MethodGet)
	api.HandleFunc("", h.handleCreateEmployee).Methods(http.MethodPost)
	api.HandleFunc("/search", h.handleSearchEmployees).Methods(http.MethodGet)
	api.HandleFunc("/managers", h.handleGetManagers).Methods(http.MethodGet)
	api.HandleFunc("/top-sales", h.handleTopSales).Methods(http.MethodGet)
	api.HandleFunc("/subordinates/{managerId:[0-9]+}", h.handleGetSubordinates).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", h.handleGetEmployee).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", h.handleUpdateEmployee).Methods(http.MethodPut)
	api.HandleFunc("/{id:[0-9]+}", h.handleDeleteEmployee).Methods(http.MethodDelete)
	api.HandleFunc("/{id:[0-9]+}/customer-count", h.handleCustomerCount).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}/hierarchy", h.handleGetHierarchy).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}/manager/{managerId:[0-9]+}", h.handleAssignManager).Methods(http.MethodPut)
}

type employeeRequest struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Title      string  `json:"title"`
	BirthDate  *string `json:"birth_date"`
	HireDate   *string `json:"hire_date"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	Phone      string  `json:"phone"`
	Fax        string  `json:"fax"`
	Email      *string `json:"email"`
}

func (req employeeRequest) toInput() (service.EmployeeInput, error) {
	birthDate, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return service.EmployeeInput{}, err
	}
	hireDate, err := parseDate("hire_date", req.HireDate)
	if err != nil {
		return service.EmployeeInput{}, err
	}

	return service.EmployeeInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Title:      req.Title,
		BirthDate:  birthDate,
		HireDate:   hireDate,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		Country:    req.Country,
		PostalCode: req.PostalCode,
		Phone:      req.Phone,
		Fax:        req.Fax,
		Email:      req.Email,
	}, nil
}

type ErrorResponse struct {
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	Details   []string  `json:"details,omitempty"`
}

type customerCountResponse struct {
	EmployeeID    uint  `json:"employee_id"`
	CustomerCount int64 `json:"customer_count"`
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageRequest(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	response, err := h.service.ListEmployees(r.Context(), page)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleSearchEmployees(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageRequest(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	response, err := h.service.SearchEmployeesByLastName(r.Context(), r.URL.Query().Get("lastName"), page)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleGetManagers(w http.ResponseWriter, r *http.Request) {
	managers, err := h.service.GetManagers(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, managers)
}

func (h *Handler) handleTopSales(w http.ResponseWriter, r *http.Request) {
	limit, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	ranks, err := h.service.GetTopEmployeesBySales(r.Context(), limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ranks)
}

func (h *Handler) handleGetSubordinates(w http.ResponseWriter, r *http.Request) {
	managerID, err := pathID(r, "managerId")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	subordinates, err := h.service.GetSubordinates(r.Context(), managerID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, subordinates)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	detail, err := h.service.GetEmployeeDetail(r.Context(), employeeID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.badRequest(w, err)
		return
	}

	employee, err := h.service.CreateEmployee(r.Context(), input)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/employees/%d", employee.ID))
	writeJSON(w, http.StatusCreated, employee)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.badRequest(w, err)
		return
	}

	employee, err := h.service.UpdateEmployee(r.Context(), employeeID, input)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, employee)
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	if err := h.service.DeleteEmployee(r.Context(), employeeID); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCustomerCount(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	count, err := h.service.GetEmployeeCustomerCount(r.Context(), employeeID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, customerCountResponse{EmployeeID: employeeID, CustomerCount: count})
}

func (h *Handler) handleGetHierarchy(w http.ResponseWriter, r *http.Request) {
	rootID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	employees, err := h.service.GetEmployeeHierarchy(r.Context(), rootID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, employees)
}

func (h *Handler) handleAssignManager(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	managerID, err := pathID(r, "managerId")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	employee, err := h.service.AssignManager(r.Context(), employeeID, managerID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, employee)
}

func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	reason := apperror.GetReason(err)
	details := apperror.GetDetails(err)

	switch apperror.GetCode(err) {
	case apperror.CodeValidation, apperror.CodeRuleViolation:
		h.writeError(w, http.StatusBadRequest, reason, err.Error(), details)
	case apperror.CodeNotFound:
		h.writeError(w, http.StatusNotFound, reason, err.Error(), details)
	case apperror.CodeConflict:
		h.writeError(w, http.StatusConflict, reason, err.Error(), details)
	default:
		h.logger.WithFields(logrus.Fields{
			"request_id": RequestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error("unexpected error")
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details []string) {
	writeJSON(w, status, ErrorResponse{
		Message:   message,
		Status:    status,
		Code:      code,
		Timestamp: h.now().UTC(),
		Details:   details,
	})
}

func decodeJSON(r *http.Request, target interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return errors.New("invalid JSON body")
	}

	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != io.EOF {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathID(r *http.Request, name string) (uint, error) {
	id, err := parseUintID(mux.Vars(r)[name])
	if err != nil {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

func parseUintID(raw string) (uint, error) {
	id64, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id64 == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id64), nil
}

func parsePageRequest(r *http.Request) (service.PageRequest, error) {
	query := r.URL.Query()

	page, err := parseOptionalInt(query.Get("page"), "page")
	if err != nil {
		return service.PageRequest{}, err
	}
	size, err := parseOptionalPositiveInt(query.Get("size"), "size")
	if err != nil {
		return service.PageRequest{}, err
	}

	return service.PageRequest{
		Page:      page,
		Size:      size,
		Sort:      strings.TrimSpace(query.Get("sort")),
		Direction: strings.TrimSpace(query.Get("direction")),
	}, nil
}

func parseOptionalInt(raw, name string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return parsed, nil
}

// parseOptionalPositiveInt returns 0 when raw is absent so the service
// applies its default; an explicit value must be at least 1.
func parseOptionalPositiveInt(raw, name string) (int, error) {
	parsed, err := parseOptionalInt(raw, name)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(raw) != "" && parsed < 1 {
		return 0, fmt.Errorf("%s must be at least 1", name)
	}
	return parsed, nil
}

func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}

	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}

	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("%s must be in YYYY-MM-DD format", field)
	}

	return &parsed, nil
}
