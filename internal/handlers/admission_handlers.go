package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/gorilla/mux"

	"admissions-platform/internal/models"
	"admissions-platform/internal/repository"
	"admissions-platform/internal/services"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

// Pagination bounds for list endpoints
const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// AdmissionHandler handles admissions API endpoints
type AdmissionHandler struct {
	analysisService       *services.AnalysisService
	recommendationService *services.RecommendationService
	programService        *services.ProgramService
	logger                *logging.StructuredLogger
	metrics               *metrics.Collector
}

// NewAdmissionHandler creates a new admission handler
func NewAdmissionHandler(
	analysisService *services.AnalysisService,
	recommendationService *services.RecommendationService,
	programService *services.ProgramService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *AdmissionHandler {
	return &AdmissionHandler{
		analysisService:       analysisService,
		recommendationService: recommendationService,
		programService:        programService,
		logger:                logger,
		metrics:               metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// analysisQuery holds the query parameters of the analysis endpoint
type analysisQuery struct {
	Province    string `default:"广东"`
	ExamTrack   string `default:"physics"`
	StudentRank *int
	Lang        string `default:"en"`
}

// GetAnalysis handles GET /api/analysis/{school}/{major}
func (h *AdmissionHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/analysis"
	ctx := r.Context()
	vars := mux.Vars(r)
	q := r.URL.Query()

	params := analysisQuery{
		Province:  strings.TrimSpace(q.Get("province")),
		ExamTrack: strings.TrimSpace(firstNonEmpty(q.Get("exam_track"), q.Get("exam_type"))),
		Lang:      strings.TrimSpace(q.Get("lang")),
	}
	if raw := strings.TrimSpace(q.Get("student_rank")); raw != "" {
		rank, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, r, endpoint, &models.ValidationError{
				Field:   "student_rank",
				Value:   raw,
				Message: "student_rank must be an integer",
			}, http.StatusBadRequest)
			return
		}
		params.StudentRank = &rank
	}
	if err := defaults.Set(&params); err != nil {
		h.handleServiceError(w, r, endpoint, err)
		return
	}
	if err := validateLang(params.Lang); err != nil {
		h.sendError(w, r, endpoint, err, http.StatusBadRequest)
		return
	}

	track, err := models.ParseExamTrack(params.ExamTrack)
	if err != nil {
		h.sendError(w, r, endpoint, err, http.StatusBadRequest)
		return
	}

	key := models.ProgramKey{
		School:    strings.TrimSpace(vars["school"]),
		Major:     strings.TrimSpace(vars["major"]),
		Province:  params.Province,
		ExamTrack: track,
	}

	result, err := h.analysisService.Analyze(ctx, key, params.StudentRank)
	if err != nil {
		h.handleServiceError(w, r, endpoint, err)
		return
	}

	if params.Lang == "zh" {
		localizeAnalysis(result)
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, result, http.StatusOK)
}

// recommendBody accepts the exam track by canonical name or Chinese label
type recommendBody struct {
	Rank      int    `json:"rank"`
	Province  string `json:"province"`
	ExamTrack string `json:"exam_track"`
	ExamType  string `json:"exam_type"`
}

// Recommend handles POST /api/recommend. JSON and form bodies are accepted.
func (h *AdmissionHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/recommend"
	ctx := r.Context()

	body, err := decodeRecommendBody(w, r)
	if err != nil {
		h.sendError(w, r, endpoint, err, http.StatusBadRequest)
		return
	}

	lang := strings.TrimSpace(r.URL.Query().Get("lang"))
	if err := validateLang(lang); err != nil {
		h.sendError(w, r, endpoint, err, http.StatusBadRequest)
		return
	}

	req := services.RecommendRequest{
		Rank:     body.Rank,
		Province: strings.TrimSpace(body.Province),
	}
	if raw := firstNonEmpty(body.ExamTrack, body.ExamType); raw != "" {
		track, err := models.ParseExamTrack(raw)
		if err != nil {
			h.sendError(w, r, endpoint, err, http.StatusBadRequest)
			return
		}
		req.ExamTrack = track
	}

	result, err := h.recommendationService.Recommend(ctx, req)
	if err != nil {
		h.handleServiceError(w, r, endpoint, err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	if lang == "zh" {
		h.sendJSON(w, recommendationZH(result), http.StatusOK)
		return
	}
	h.sendJSON(w, result, http.StatusOK)
}

func decodeRecommendBody(w http.ResponseWriter, r *http.Request) (*recommendBody, error) {
	var body recommendBody

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, &models.ValidationError{Message: "invalid form body"}
		}
		body.Province = r.PostForm.Get("province")
		body.ExamTrack = r.PostForm.Get("exam_track")
		body.ExamType = r.PostForm.Get("exam_type")
		if raw := strings.TrimSpace(r.PostForm.Get("rank")); raw != "" {
			rank, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &models.ValidationError{Field: "rank", Value: raw, Message: "rank must be an integer"}
			}
			body.Rank = rank
		}
		return &body, nil
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(&body); err != nil {
		return nil, &models.ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	return &body, nil
}

// ListPrograms handles GET /api/programs
func (h *AdmissionHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/programs"
	ctx := r.Context()
	q := r.URL.Query()

	// Default pagination
	page := 1
	limit := defaultPageLimit

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= maxPageLimit {
		limit = l
	}

	filter := repository.ProgramFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if province := strings.TrimSpace(q.Get("province")); province != "" {
		filter.Province = &province
	}

	if raw := strings.TrimSpace(firstNonEmpty(q.Get("exam_track"), q.Get("exam_type"))); raw != "" {
		track, err := models.ParseExamTrack(raw)
		if err != nil {
			h.sendError(w, r, endpoint, err, http.StatusBadRequest)
			return
		}
		filter.ExamTrack = &track
	}

	if school := strings.TrimSpace(q.Get("school")); school != "" {
		filter.School = &school
	}

	programs, total, err := h.programService.ListPrograms(ctx, filter)
	if err != nil {
		h.handleServiceError(w, r, endpoint, err)
		return
	}
	if programs == nil {
		programs = []*models.Program{}
	}

	response := PaginatedResponse{
		Data:       programs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *AdmissionHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"database":  "up",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.programService.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		status["database"] = "down"
		code = http.StatusServiceUnavailable
	}

	h.sendJSON(w, status, code)
}

// handleServiceError maps service errors onto HTTP status codes
func (h *AdmissionHandler) handleServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		h.sendError(w, r, endpoint, err, http.StatusBadRequest)
	case repository.IsNotFound(err):
		h.sendError(w, r, endpoint, err, http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
			"method":   r.Method,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, errors.New("internal server error"), http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *AdmissionHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *AdmissionHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint string, err error, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: err.Error(),
		Code:    statusCode,
	}

	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		response.Field = vErr.Field
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all admissions API routes
func (h *AdmissionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/analysis/{school}/{major}", h.GetAnalysis).Methods("GET")
	router.HandleFunc("/api/recommend", h.Recommend).Methods("POST")
	router.HandleFunc("/api/programs", h.ListPrograms).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

func validateLang(lang string) error {
	switch lang {
	case "", "en", "zh":
		return nil
	}
	return &models.ValidationError{Field: "lang", Value: lang, Message: "lang must be en or zh"}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
