package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"weather-monitor/internal/models"
	"weather-monitor/internal/repository"
	"weather-monitor/internal/services"
	"weather-monitor/pkg/logging"
	"weather-monitor/pkg/metrics"
)

var validate = validator.New()

// HealthChecker reports whether the store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// WeatherHandler handles weather API endpoints
type WeatherHandler struct {
	weatherService *services.WeatherService
	statsService   *services.StatisticsService
	health         HealthChecker
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(
	weatherService *services.WeatherService,
	statsService *services.StatisticsService,
	health HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WeatherHandler {
	return &WeatherHandler{
		weatherService: weatherService,
		statsService:   statsService,
		health:         health,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type thresholdRequest struct {
	Threshold *float64 `json:"threshold" validate:"required"`
	Scale     string   `json:"scale" validate:"max=32"`
}

type saveRequest struct {
	Time string `json:"time" validate:"max=64"`
}

type convertQuery struct {
	Value string `validate:"required,numeric"`
	From  string `validate:"max=32"`
	To    string `validate:"max=32"`
}

// ConditionResponse is returned by GET /api/weather/condition
type ConditionResponse struct {
	Condition models.Condition `json:"condition"`
	Collected bool             `json:"collected"`
	Text      string           `json:"text"`
}

// RecordResponse is a reading loaded from the store
type RecordResponse struct {
	Time      string           `json:"time"`
	Reading   models.Reading   `json:"reading"`
	Condition models.Condition `json:"condition"`
}

// Collect handles POST /api/weather/collect
func (h *WeatherHandler) Collect(w http.ResponseWriter, r *http.Request) {
	result, err := h.weatherService.Collect(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		h.sendServiceError(w, r, "failed to collect reading", err)
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// AddObserver handles POST /api/weather/observers
func (h *WeatherHandler) AddObserver(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.weatherService.AddThreshold(r.Context(), *req.Threshold, req.Scale)
	if err != nil {
		h.sendServiceError(w, r, "failed to register observer", err)
		return
	}

	h.sendJSON(w, result, http.StatusCreated)
}

// GetReport handles GET /api/weather
func (h *WeatherHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report := h.weatherService.Report(r.Context(), r.URL.Query().Get("scale"))
	h.sendJSON(w, report, http.StatusOK)
}

// GetCondition handles GET /api/weather/condition
func (h *WeatherHandler) GetCondition(w http.ResponseWriter, r *http.Request) {
	condition, collected := h.weatherService.Condition()
	h.sendJSON(w, ConditionResponse{
		Condition: condition,
		Collected: collected,
		Text:      "Weather Condition: " + string(condition),
	}, http.StatusOK)
}

// SaveCurrent handles POST /api/weather/save
func (h *WeatherHandler) SaveCurrent(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := h.decodeOptionalBody(r, &req); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	key, err := h.weatherService.SaveCurrent(r.Context(), req.Time)
	if err != nil {
		h.sendServiceError(w, r, "failed to save reading", err)
		return
	}

	h.sendJSON(w, map[string]string{"time": key}, http.StatusCreated)
}

// GetRecord handles GET /api/weather/records
func (h *WeatherHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("time")

	reading, condition, err := h.weatherService.Retrieve(r.Context(), key)
	if err != nil {
		h.sendServiceError(w, r, "failed to retrieve reading", err)
		return
	}

	h.sendJSON(w, RecordResponse{
		Time:      key,
		Reading:   reading,
		Condition: condition,
	}, http.StatusOK)
}

// GetRecentRecords handles GET /api/weather/records/recent
func (h *WeatherHandler) GetRecentRecords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			h.sendError(w, r, "invalid limit, expected integer", http.StatusBadRequest)
			return
		}
		limit = l
	}

	rows, err := h.statsService.Recent(r.Context(), limit)
	if err != nil {
		h.sendServiceError(w, r, "failed to list readings", err)
		return
	}

	h.sendJSON(w, map[string]interface{}{
		"data":  rows,
		"count": len(rows),
		"limit": services.ClampLimit(limit),
	}, http.StatusOK)
}

// GetSummary handles GET /api/weather/summary
func (h *WeatherHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.statsService.Summary(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "failed to summarize readings", err)
		return
	}

	h.sendJSON(w, summary, http.StatusOK)
}

// Undo handles POST /api/weather/undo
func (h *WeatherHandler) Undo(w http.ResponseWriter, r *http.Request) {
	report, err := h.weatherService.Undo(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "failed to undo", err)
		return
	}

	h.sendJSON(w, report, http.StatusOK)
}

// GetAlerts handles GET /api/weather/alerts
func (h *WeatherHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	h.sendJSON(w, map[string]interface{}{
		"data": h.weatherService.Alerts(limit),
	}, http.StatusOK)
}

// Convert handles GET /api/convert
func (h *WeatherHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := convertQuery{
		Value: r.URL.Query().Get("value"),
		From:  r.URL.Query().Get("from"),
		To:    r.URL.Query().Get("to"),
	}
	if err := validate.Struct(q); err != nil {
		h.sendError(w, r, "invalid conversion request: value must be a number", http.StatusBadRequest)
		return
	}

	value, err := strconv.ParseFloat(q.Value, 64)
	if err != nil {
		h.sendError(w, r, "invalid value, expected number", http.StatusBadRequest)
		return
	}

	h.sendJSON(w, h.weatherService.Convert(r.Context(), value, q.From, q.To), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"database":  "up",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.health.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_DEGRADED] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "degraded"
		status["database"] = "down"
		code = http.StatusServiceUnavailable
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// decodeBody decodes and validates a required JSON body
func (h *WeatherHandler) decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return h.validateRequest(dst)
}

// decodeOptionalBody is decodeBody for endpoints whose body may be empty
func (h *WeatherHandler) decodeOptionalBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return h.validateRequest(dst)
}

func (h *WeatherHandler) validateRequest(dst interface{}) error {
	if err := validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fe := validationErrs[0]
			return fmt.Errorf("invalid field %s: failed %s validation", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// sendServiceError maps a service error onto a status code
func (h *WeatherHandler) sendServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	ctx := r.Context()
	endpoint := routeTemplate(r)

	var (
		notFound      *repository.NotFoundError
		storageErr    *repository.StorageError
		validationErr *models.ValidationError
	)

	switch {
	case errors.As(err, &notFound):
		h.sendError(w, r, err.Error(), http.StatusNotFound)
	case errors.As(err, &validationErr):
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNothingToUndo):
		h.sendError(w, r, err.Error(), http.StatusConflict)
	case errors.As(err, &storageErr):
		h.logger.Error(ctx, "[API_STORAGE_ERROR] "+message, logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("storage_error", endpoint)
		h.sendError(w, r, message+": storage unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error(ctx, "[API_INTERNAL_ERROR] "+message, logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, message, http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *WeatherHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *WeatherHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all weather API routes
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestID, Instrument(h.metrics))

	router.HandleFunc("/api/weather", h.GetReport).Methods("GET")
	router.HandleFunc("/api/weather/condition", h.GetCondition).Methods("GET")
	router.HandleFunc("/api/weather/collect", h.Collect).Methods("POST")
	router.HandleFunc("/api/weather/observers", h.AddObserver).Methods("POST")
	router.HandleFunc("/api/weather/save", h.SaveCurrent).Methods("POST")
	router.HandleFunc("/api/weather/records", h.GetRecord).Methods("GET")
	router.HandleFunc("/api/weather/records/recent", h.GetRecentRecords).Methods("GET")
	router.HandleFunc("/api/weather/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/weather/undo", h.Undo).Methods("POST")
	router.HandleFunc("/api/weather/alerts", h.GetAlerts).Methods("GET")
	router.HandleFunc("/api/convert", h.Convert).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
