package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
	"github.com/IrrisMag/HealthTech-sub000/internal/middleware"
	"github.com/IrrisMag/HealthTech-sub000/internal/monitoring"
	"github.com/IrrisMag/HealthTech-sub000/internal/service"
	"github.com/IrrisMag/HealthTech-sub000/pkg/dataservice"
)

// Forecaster is the forecasting surface the API layer consumes.
type Forecaster interface {
	domain.DemandForecaster

	// History returns the model's stored training tail as dated points.
	History(bloodType domain.BloodType, days int) ([]domain.ForecastPoint, error)

	// CacheStats reports forecast result cache effectiveness.
	CacheStats() service.CacheStats
}

// RecordAnalyzer runs the clinical supply estimation over caller-supplied
// donor records.
type RecordAnalyzer interface {
	AnalyzeRecords(records []domain.DonorClinicalRecord, opts service.AnalysisOptions) *domain.ClinicalSupplyReport
}

// Integrator blends clinical and time-series forecasts, including over a
// report the caller fetched and analyzed itself.
type Integrator interface {
	domain.ForecastIntegrator

	IntegrateWithReport(ctx context.Context, report *domain.ClinicalSupplyReport, periods int, confidence float64, includeTimeSeries bool) ([]domain.IntegratedForecast, error)
}

// Dependencies wires the HTTP handlers to the service layer. DataClient,
// Cache and Stats are optional; the corresponding endpoints degrade when
// they are absent.
type Dependencies struct {
	Config     domain.ConfigManager
	Models     domain.ModelProvider
	Forecaster Forecaster
	Analyzer   RecordAnalyzer
	Integrator Integrator
	Optimizer  domain.InventoryOptimizer
	DataClient *dataservice.Client
	Cache      *dataservice.Cache
	Stats      *monitoring.Collector
	Logger     *logrus.Logger
}

// Handlers implements the REST endpoints.
type Handlers struct {
	config     domain.ConfigManager
	models     domain.ModelProvider
	forecaster Forecaster
	analyzer   RecordAnalyzer
	integrator Integrator
	optimizer  domain.InventoryOptimizer
	dataClient *dataservice.Client
	cache      *dataservice.Cache
	stats      *monitoring.Collector
	logger     *logrus.Logger
}

// NewHandlers creates the endpoint handler set.
func NewHandlers(deps Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}

	return &Handlers{
		config:     deps.Config,
		models:     deps.Models,
		forecaster: deps.Forecaster,
		analyzer:   deps.Analyzer,
		integrator: deps.Integrator,
		optimizer:  deps.Optimizer,
		dataClient: deps.DataClient,
		cache:      deps.Cache,
		stats:      deps.Stats,
		logger:     logger,
	}
}

type forecastRequest struct {
	BloodType       string  `json:"blood_type" binding:"required"`
	Periods         int     `json:"periods"`
	ConfidenceLevel float64 `json:"confidence_level"`
	IncludeHistory  bool    `json:"include_history"`
	HistoryDays     int     `json:"history_days"`
}

type forecastResponse struct {
	BloodType         domain.BloodType         `json:"blood_type"`
	Forecasts         []domain.ForecastPoint   `json:"forecasts"`
	ModelInfo         domain.ModelMetadata     `json:"model_info"`
	SummaryStatistics domain.SummaryStatistics `json:"summary_statistics"`
	ConfidenceLevel   float64                  `json:"confidence_level"`
	DataSource        domain.ModelSource       `json:"data_source"`
	History           []domain.ForecastPoint   `json:"history,omitempty"`
	GeneratedAt       time.Time                `json:"generated_at"`
}

// Forecast handles POST /api/v1/forecast.
func (h *Handlers) Forecast(c *gin.Context) {
	start := time.Now()

	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, &domain.InvalidParameterError{
			Parameter: "body",
			Value:     nil,
			Reason:    err.Error(),
		})
		return
	}

	bloodType, err := domain.ParseBloodType(req.BloodType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	forecast, err := h.forecaster.Forecast(c.Request.Context(), bloodType, req.Periods, req.ConfidenceLevel)
	if h.stats != nil {
		h.stats.RecordForecast(time.Since(start), err == nil)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	model, err := h.models.Load(bloodType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := forecastResponse{
		BloodType:         forecast.BloodType,
		Forecasts:         forecast.Points,
		ModelInfo:         model.Metadata,
		SummaryStatistics: forecast.Summary(),
		ConfidenceLevel:   forecast.ConfidenceLevel,
		DataSource:        forecast.ModelSource,
		GeneratedAt:       forecast.GeneratedAt,
	}
	if req.IncludeHistory {
		history, err := h.forecaster.History(bloodType, req.HistoryDays)
		if err != nil {
			h.respondError(c, err)
			return
		}
		resp.History = history
	}

	c.JSON(http.StatusOK, resp)
}

type batchForecastRequest struct {
	BloodTypes      []string `json:"blood_types"`
	Periods         int      `json:"periods"`
	ConfidenceLevel float64  `json:"confidence_level"`
}

type batchFailureBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type batchForecastResponse struct {
	Results     map[string]domain.DemandForecast `json:"results"`
	Failures    map[string]batchFailureBody      `json:"failures,omitempty"`
	Requested   int                              `json:"requested"`
	Succeeded   int                              `json:"succeeded"`
	GeneratedAt time.Time                        `json:"generated_at"`
}

// BatchForecast handles POST /api/v1/forecast/batch. Unknown blood types in
// the list surface as per-type failures, not request-level errors.
func (h *Handlers) BatchForecast(c *gin.Context) {
	start := time.Now()

	var req batchForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, &domain.InvalidParameterError{
			Parameter: "body",
			Value:     nil,
			Reason:    err.Error(),
		})
		return
	}

	bloodTypes := make([]domain.BloodType, 0, len(req.BloodTypes))
	for _, raw := range req.BloodTypes {
		if bt, err := domain.ParseBloodType(raw); err == nil {
			bloodTypes = append(bloodTypes, bt)
		} else {
			bloodTypes = append(bloodTypes, domain.BloodType(raw))
		}
	}

	result, err := h.forecaster.BatchForecast(c.Request.Context(), bloodTypes, req.Periods, req.ConfidenceLevel)
	if h.stats != nil {
		h.stats.RecordForecast(time.Since(start), err == nil)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	requested := len(bloodTypes)
	if requested == 0 {
		requested = len(domain.AllBloodTypes())
	}

	resp := batchForecastResponse{
		Results:     make(map[string]domain.DemandForecast, len(result.Forecasts)),
		Requested:   requested,
		Succeeded:   len(result.Forecasts),
		GeneratedAt: result.GeneratedAt,
	}
	for _, f := range result.Forecasts {
		resp.Results[f.BloodType.String()] = f
	}
	if len(result.Failures) > 0 {
		resp.Failures = make(map[string]batchFailureBody, len(result.Failures))
		for _, failure := range result.Failures {
			resp.Failures[failure.BloodType] = batchFailureBody{
				Code:    failure.Code,
				Message: failure.Message,
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

type clinicalAnalyzeRequest struct {
	DonorRecords    []domain.DonorClinicalRecord `json:"donor_records"`
	SeasonalDecline bool                         `json:"seasonal_decline"`
}

// AnalyzeClinicalData handles POST /api/v1/clinical/analyze. An empty donor
// list is legitimate and yields a zero-filled report.
func (h *Handlers) AnalyzeClinicalData(c *gin.Context) {
	var req clinicalAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, &domain.InvalidParameterError{
			Parameter: "body",
			Value:     nil,
			Reason:    err.Error(),
		})
		return
	}

	report := h.analyzer.AnalyzeRecords(req.DonorRecords, service.AnalysisOptions{
		SeasonalDecline: req.SeasonalDecline,
	})
	if h.stats != nil {
		h.stats.RecordClinicalAnalysis(true)
	}

	c.JSON(http.StatusOK, report)
}

const (
	defaultClinicalPageLimit = 100
	maxClinicalPageLimit     = 1000
)

type clinicalForecastResponse struct {
	Integrated      map[string]domain.IntegratedForecast `json:"integrated"`
	Risk            map[string]domain.RiskLevel          `json:"risk"`
	Recommendations []string                             `json:"recommendations"`
	ClinicalSummary *domain.ClinicalSupplyReport         `json:"clinical_summary"`
	DegradedMode    bool                                 `json:"degraded_mode"`
	DataSource      string                               `json:"data_source"`
	GeneratedAt     time.Time                            `json:"generated_at"`
}

// ClinicalForecast handles GET /api/v1/forecast/clinical: fetch donor
// records from the Data Service, estimate supply, blend with time-series
// demand, grade shortage risk against current inventory.
func (h *Handlers) ClinicalForecast(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if skip < 0 {
		h.respondError(c, &domain.InvalidParameterError{Parameter: "skip", Value: skip, Reason: "must be non-negative"})
		return
	}

	limit, err := queryInt(c, "limit", defaultClinicalPageLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if limit < 1 || limit > maxClinicalPageLimit {
		h.respondError(c, &domain.InvalidParameterError{
			Parameter: "limit",
			Value:     limit,
			Reason:    fmt.Sprintf("must be between 1 and %d", maxClinicalPageLimit),
		})
		return
	}

	horizon, err := queryInt(c, "prediction_horizon_days", 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if horizon != 0 {
		if err := domain.ValidateHorizon(horizon); err != nil {
			h.respondError(c, err)
			return
		}
	}

	confidence, err := queryFloat(c, "confidence_level", 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if confidence != 0 {
		if err := domain.ValidateConfidenceLevel(confidence); err != nil {
			h.respondError(c, err)
			return
		}
	}

	includeTS, err := queryBool(c, "include_time_series_forecast", true)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var bloodTypeFilter *domain.BloodType
	if raw := c.Query("blood_type"); raw != "" {
		bt, perr := domain.ParseBloodType(raw)
		if perr != nil {
			h.respondError(c, &domain.InvalidParameterError{Parameter: "blood_type", Value: raw, Reason: "unknown blood type"})
			return
		}
		bloodTypeFilter = &bt
	}

	var statusFilter *domain.EligibilityStatus
	if raw := c.Query("eligibility_status"); raw != "" {
		status := domain.EligibilityStatus(strings.ToLower(strings.TrimSpace(raw)))
		if !status.IsValid() {
			h.respondError(c, &domain.InvalidParameterError{Parameter: "eligibility_status", Value: raw, Reason: "unknown eligibility status"})
			return
		}
		statusFilter = &status
	}

	if h.dataClient == nil {
		h.respondError(c, &domain.DataServiceUnavailableError{
			Endpoint: "clinical-data",
			Err:      errors.New("data service client not configured"),
		})
		return
	}

	client := h.dataClient
	if raw := c.Query("data_service_url"); raw != "" {
		override, oerr := h.dataClient.WithBaseURL(raw)
		if oerr != nil {
			h.respondError(c, oerr)
			return
		}
		client = override
	}

	ctx := c.Request.Context()

	fetchStart := time.Now()
	records, err := client.FetchDonorRecordsPage(ctx, dataservice.RecordQuery{
		Skip:              skip,
		Limit:             limit,
		BloodType:         bloodTypeFilter,
		EligibilityStatus: statusFilter,
	})
	if h.stats != nil {
		h.stats.RecordDataServiceCall(time.Since(fetchStart), err == nil)
	}
	if err != nil {
		if h.stats != nil {
			h.stats.RecordIntegration(false, false)
		}
		h.respondError(c, err)
		return
	}

	report := h.analyzer.AnalyzeRecords(records, service.AnalysisOptions{})
	integrated, err := h.integrator.IntegrateWithReport(ctx, report, horizon, confidence, includeTS)
	if err != nil {
		if h.stats != nil {
			h.stats.RecordIntegration(false, false)
		}
		h.respondError(c, err)
		return
	}

	degraded := false
	if includeTS {
		for _, f := range integrated {
			if f.DegradedMode {
				degraded = true
				break
			}
		}
	}

	riskLevels := make(map[string]domain.RiskLevel)
	invStart := time.Now()
	snapshots, invErr := client.FetchInventory(ctx)
	if h.stats != nil {
		h.stats.RecordDataServiceCall(time.Since(invStart), invErr == nil)
	}
	if invErr != nil {
		// Risk grading needs stock levels; the forecast itself does not.
		degraded = true
		h.logger.WithError(invErr).Warn("Inventory unavailable, skipping risk grading")
	} else {
		byType := make(map[domain.BloodType]domain.InventorySnapshot, len(snapshots))
		for _, snapshot := range snapshots {
			byType[snapshot.BloodType] = snapshot
		}

		leadDays := h.config.GetConfig().Optimization.DefaultLeadTimeDays
		if leadDays <= 0 {
			leadDays = 2
		}
		for i := range integrated {
			if inv, ok := byType[integrated[i].BloodType]; ok {
				assessment := service.AssessRisk(&integrated[i], &inv, leadDays)
				riskLevels[integrated[i].BloodType.String()] = assessment.RiskLevel
			}
		}
	}

	byTypeOut := make(map[string]domain.IntegratedForecast, len(integrated))
	for _, f := range integrated {
		byTypeOut[f.BloodType.String()] = f
	}

	if h.stats != nil {
		h.stats.RecordIntegration(true, degraded)
	}

	c.JSON(http.StatusOK, clinicalForecastResponse{
		Integrated:      byTypeOut,
		Risk:            riskLevels,
		Recommendations: buildRecommendations(integrated, riskLevels),
		ClinicalSummary: report,
		DegradedMode:    degraded,
		DataSource:      aggregateSource(integrated),
		GeneratedAt:     time.Now().UTC(),
	})
}

// buildRecommendations turns risk grades into operator-facing advice.
func buildRecommendations(integrated []domain.IntegratedForecast, riskLevels map[string]domain.RiskLevel) []string {
	var out []string
	for _, f := range integrated {
		switch riskLevels[f.BloodType.String()] {
		case domain.RISK_HIGH:
			out = append(out, fmt.Sprintf("URGENT: schedule emergency donor recruitment for %s", f.BloodType))
		case domain.RISK_MEDIUM:
			out = append(out, fmt.Sprintf("Plan additional donation campaigns for %s", f.BloodType))
		}
	}
	if len(out) == 0 {
		out = append(out, "Projected supply covers the assessed blood types")
	}
	return out
}

// aggregateSource reduces per-type data sources to one response-level label.
func aggregateSource(integrated []domain.IntegratedForecast) string {
	if len(integrated) == 0 {
		return ""
	}
	first := integrated[0].DataSource
	for _, f := range integrated[1:] {
		if f.DataSource != first {
			return "mixed"
		}
	}
	return string(first)
}

type optimizeRequest struct {
	BloodType   string                          `json:"blood_type"`
	BloodTypes  []string                        `json:"blood_types"`
	Method      string                          `json:"method"`
	Constraints *domain.OptimizationConstraints `json:"constraints"`
}

// Optimize handles POST /api/v1/optimize. A single blood_type yields one
// recommendation object; otherwise the full per-type result is returned.
// Infeasible plans are a 200 with the infeasible marker set, not an error.
func (h *Handlers) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, &domain.InvalidParameterError{
			Parameter: "body",
			Value:     nil,
			Reason:    err.Error(),
		})
		return
	}

	method, err := domain.ParseOptimizationMethod(req.Method)
	if err != nil {
		h.respondError(c, err)
		return
	}

	single := strings.TrimSpace(req.BloodType) != ""
	var bloodTypes []domain.BloodType
	if single {
		bt, perr := domain.ParseBloodType(req.BloodType)
		if perr != nil {
			h.respondError(c, perr)
			return
		}
		bloodTypes = []domain.BloodType{bt}
	} else {
		for _, raw := range req.BloodTypes {
			bt, perr := domain.ParseBloodType(raw)
			if perr != nil {
				h.respondError(c, perr)
				return
			}
			bloodTypes = append(bloodTypes, bt)
		}
	}

	var constraints domain.OptimizationConstraints
	if req.Constraints != nil {
		constraints = *req.Constraints
	}

	result, err := h.optimizer.Optimize(c.Request.Context(), bloodTypes, constraints, method)
	if h.stats != nil {
		infeasible := 0
		if result != nil {
			infeasible = result.InfeasibleCount
		}
		h.stats.RecordOptimization(err == nil, infeasible)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	if single {
		if len(result.Recommendations) == 0 {
			h.respondError(c, &domain.DataServiceUnavailableError{
				Endpoint: "inventory",
				Err:      fmt.Errorf("no inventory snapshot for %s", bloodTypes[0]),
			})
			return
		}
		c.JSON(http.StatusOK, result.Recommendations[0])
		return
	}

	c.JSON(http.StatusOK, result)
}

type modelsResponse struct {
	Models  []domain.ModelMetadata `json:"models"`
	Count   int                    `json:"count"`
	Version uint64                 `json:"version"`
}

// ListModels handles GET /api/v1/models.
func (h *Handlers) ListModels(c *gin.Context) {
	models := h.models.List()
	c.JSON(http.StatusOK, modelsResponse{
		Models:  models,
		Count:   len(models),
		Version: h.models.Version(),
	})
}

// ReloadModels handles POST /api/v1/models/reload.
func (h *Handlers) ReloadModels(c *gin.Context) {
	summary, err := h.models.Reload(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if h.stats != nil {
		h.stats.RecordModelReload()
	}

	c.JSON(http.StatusOK, summary)
}

// Health handles GET /health. The upstream probe is bounded so a dead Data
// Service cannot stall health reporting.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	checks := gin.H{}

	models := h.models.List()
	checks["models"] = gin.H{
		"loaded":  len(models),
		"version": h.models.Version(),
	}
	if len(models) == 0 {
		status = "degraded"
	}

	if h.dataClient != nil {
		upstream := h.dataClient.Healthy(ctx)
		checks["data_service"] = gin.H{
			"healthy":       upstream,
			"breaker_state": h.dataClient.BreakerState().String(),
		}
		if !upstream {
			status = "degraded"
		}
	}

	checks["forecast_cache"] = h.forecaster.CacheStats()
	if h.cache != nil {
		checks["clinical_cache"] = gin.H{"healthy": h.cache.Healthy(ctx)}
	}

	resp := gin.H{
		"status":    status,
		"service":   "blood-supply-forecasting",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}
	if h.stats != nil {
		resp["uptime_seconds"] = h.stats.Uptime().Seconds()
		resp["stats"] = h.stats.Snapshot()
	}

	c.JSON(http.StatusOK, resp)
}

// Stats handles GET /api/v1/stats.
func (h *Handlers) Stats(c *gin.Context) {
	resp := gin.H{
		"forecast_cache": h.forecaster.CacheStats(),
		"timestamp":      time.Now().UTC(),
	}
	if h.stats != nil {
		resp["service"] = h.stats.Snapshot()
		resp["uptime_seconds"] = h.stats.Uptime().Seconds()
	}

	c.JSON(http.StatusOK, resp)
}

// respondError maps service errors onto the HTTP error envelope.
func (h *Handlers) respondError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	status := httpStatusFor(code)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}

	requestID := c.GetString(middleware.RequestIDKey)
	apiErr := domain.NewAPIError(code, err.Error(), "", requestID)

	h.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": requestID,
		"code":       code,
		"status":     status,
	}).Warn("Request failed")

	c.JSON(status, gin.H{
		"error":      apiErr,
		"request_id": requestID,
		"timestamp":  apiErr.Timestamp,
	})
}

func httpStatusFor(code string) int {
	switch code {
	case domain.ErrCodeInvalidParameter:
		return http.StatusBadRequest
	case domain.ErrCodeModelNotFound:
		return http.StatusNotFound
	case domain.ErrCodeDataServiceUnavailable:
		return http.StatusBadGateway
	case domain.ErrCodeNoForecastAvailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.InvalidParameterError{Parameter: name, Value: raw, Reason: "must be an integer"}
	}
	return v, nil
}

func queryFloat(c *gin.Context, name string, def float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &domain.InvalidParameterError{Parameter: name, Value: raw, Reason: "must be a number"}
	}
	return v, nil
}

func queryBool(c *gin.Context, name string, def bool) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &domain.InvalidParameterError{Parameter: name, Value: raw, Reason: "must be a boolean"}
	}
	return v, nil
}
