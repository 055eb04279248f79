package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/llmwatch/llmwatch/internal/api/dto"
	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/domain/incident"
	"github.com/llmwatch/llmwatch/internal/events"
	"github.com/llmwatch/llmwatch/internal/pkg/utils"
	"github.com/llmwatch/llmwatch/internal/pkg/validator"
	"github.com/llmwatch/llmwatch/internal/services"
	"github.com/llmwatch/llmwatch/internal/testutil"
)

type handlerFixture struct {
	detection   *services.DetectionService
	incidentSvc incident.Service
	anomalies   *testutil.MockAnomalyRepository
	incidents   *testutil.MockIncidentRepository
	validator   *validator.Validator
}

func newHandlerFixture() *handlerFixture {
	log := testutil.NewTestLogger()
	registry := detector.NewRegistry(detector.DefaultConfig())
	anomalyRepo := testutil.NewMockAnomalyRepository()
	incidentRepo := testutil.NewMockIncidentRepository()
	hub := events.NewHub(log)
	telemetry := services.NewTelemetryService(config.TelemetryConfig{ServiceName: "test"}, log)
	rootCause := services.NewRootCauseService(nil, log)
	incidentSvc := services.NewIncidentService(incidentRepo, rootCause, registry, nil, hub, config.IncidentConfig{
		SeverityFloor: "SEV-2",
		Cooldown:      10 * time.Minute,
	}, log)

	return &handlerFixture{
		detection:   services.NewDetectionService(registry, anomalyRepo, incidentSvc, telemetry, hub, log),
		incidentSvc: incidentSvc,
		anomalies:   anomalyRepo,
		incidents:   incidentRepo,
		validator:   validator.New(),
	}
}

// warm feeds n quiet batches so the token and latency windows are ready
// with low variance.
func warm(t *testing.T, f *handlerFixture, n int) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		jitter := float64(i%5-2) / 2 * 10
		_, err := f.detection.ObserveBatch(ctx, map[string]float64{
			"llm.tokens.total": 500 + jitter,
			"llm.latency.ms":   250 + jitter,
		}, base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("warm batch %d: %v", i, err)
		}
	}
}

func decodeSuccess(t *testing.T, body *bytes.Buffer, data interface{}) utils.SuccessResponse {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, body.String())
	}
	if !envelope.Success {
		t.Fatalf("success = false, body %s", body.String())
	}
	if data != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return utils.SuccessResponse{Success: envelope.Success, Message: envelope.Message}
}

func decodeError(t *testing.T, body *bytes.Buffer) utils.ErrorDetail {
	t.Helper()
	var envelope utils.ErrorResponse
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, body.String())
	}
	if envelope.Success {
		t.Fatalf("success = true on error response, body %s", body.String())
	}
	return envelope.Error
}

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(nil, testutil.NewTestLogger())

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var data map[string]string
	decodeSuccess(t, rec.Body, &data)
	if data["status"] != "ok" {
		t.Errorf("status field = %q, want ok", data["status"])
	}
}

func TestObserve(t *testing.T) {
	type observeResult struct {
		Anomalies []dto.AnomalyDTO `json:"anomalies"`
		Pattern   *dto.PatternDTO  `json:"pattern"`
		Incident  *dto.IncidentDTO `json:"incident"`
	}

	t.Run("invalid body", func(t *testing.T) {
		f := newHandlerFixture()
		h := NewAnomalyHandler(f.detection, testutil.NewTestLogger(), f.validator)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/anomalies/observe", strings.NewReader("{not json"))
		h.Observe(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("empty metrics", func(t *testing.T) {
		f := newHandlerFixture()
		h := NewAnomalyHandler(f.detection, testutil.NewTestLogger(), f.validator)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/anomalies/observe", strings.NewReader(`{"metrics":{}}`))
		h.Observe(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		detail := decodeError(t, rec.Body)
		if detail.Code != "VALIDATION_ERROR" {
			t.Errorf("error code = %q, want VALIDATION_ERROR", detail.Code)
		}
	})

	t.Run("quiet batch", func(t *testing.T) {
		f := newHandlerFixture()
		warm(t, f, 50)
		h := NewAnomalyHandler(f.detection, testutil.NewTestLogger(), f.validator)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/anomalies/observe",
			strings.NewReader(`{"metrics":{"llm.tokens.total":505,"llm.latency.ms":248}}`))
		h.Observe(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		var result observeResult
		decodeSuccess(t, rec.Body, &result)
		if len(result.Anomalies) != 0 {
			t.Errorf("got %d anomalies for a quiet batch, want 0", len(result.Anomalies))
		}
		if result.Anomalies == nil {
			t.Error("anomalies should encode as an empty array, not null")
		}
	})

	t.Run("spike raises anomalies and incident", func(t *testing.T) {
		f := newHandlerFixture()
		warm(t, f, 50)
		h := NewAnomalyHandler(f.detection, testutil.NewTestLogger(), f.validator)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/anomalies/observe",
			strings.NewReader(`{"metrics":{"llm.tokens.total":90000,"llm.latency.ms":80000}}`))
		h.Observe(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		var result observeResult
		decodeSuccess(t, rec.Body, &result)
		if len(result.Anomalies) != 2 {
			t.Fatalf("got %d anomalies, want 2", len(result.Anomalies))
		}
		if result.Pattern == nil {
			t.Fatal("expected a correlated pattern")
		}
		if result.Pattern.Name != "high_token_latency_spike" {
			t.Errorf("pattern = %q", result.Pattern.Name)
		}
		if result.Incident == nil {
			t.Fatal("expected an incident")
		}
		if result.Incident.Status != incident.StatusOpen {
			t.Errorf("incident status = %q, want open", result.Incident.Status)
		}
	})
}

func TestRecent(t *testing.T) {
	f := newHandlerFixture()
	warm(t, f, 50)
	ctx := context.Background()
	if _, err := f.detection.ObserveBatch(ctx, map[string]float64{"llm.tokens.total": 90000}, time.Now()); err != nil {
		t.Fatalf("spike batch: %v", err)
	}

	h := NewAnomalyHandler(f.detection, testutil.NewTestLogger(), f.validator)
	rec := httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/v1/anomalies/recent?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var anomalies []dto.AnomalyDTO
	decodeSuccess(t, rec.Body, &anomalies)
	if len(anomalies) != 1 {
		t.Fatalf("got %d recent anomalies, want 1", len(anomalies))
	}
	if anomalies[0].MetricName != "llm.tokens.total" {
		t.Errorf("metric = %q", anomalies[0].MetricName)
	}
	if anomalies[0].Direction != "high" {
		t.Errorf("direction = %q, want high", anomalies[0].Direction)
	}
}

func TestAnomalyList(t *testing.T) {
	f := newHandlerFixture()
	warm(t, f, 50)
	ctx := context.Background()
	spike := map[string]float64{"llm.tokens.total": 90000, "llm.latency.ms": 80000}
	if _, err := f.detection.ObserveBatch(ctx, spike, time.Now()); err != nil {
		t.Fatalf("spike batch: %v", err)
	}

	h := NewAnomalyHandler(f.detection, testutil.NewTestLogger(), f.validator)

	t.Run("invalid since", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/anomalies?since=yesterday", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("paginated results", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/anomalies?page=1&page_size=10", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}

		var page struct {
			Data       []dto.AnomalyDTO `json:"data"`
			Page       int              `json:"page"`
			PageSize   int              `json:"page_size"`
			TotalItems int64            `json:"total_items"`
			TotalPages int              `json:"total_pages"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("decode page: %v", err)
		}
		if page.TotalItems != 2 {
			t.Errorf("total_items = %d, want 2", page.TotalItems)
		}
		if page.Page != 1 || page.PageSize != 10 || page.TotalPages != 1 {
			t.Errorf("pagination = %d/%d/%d, want 1/10/1", page.Page, page.PageSize, page.TotalPages)
		}
		if len(page.Data) != 2 {
			t.Fatalf("got %d records, want 2", len(page.Data))
		}
		for _, record := range page.Data {
			if record.PatternID != "high_token_latency_spike" {
				t.Errorf("record pattern = %q", record.PatternID)
			}
		}
	})

	t.Run("metric filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/anomalies?metric=llm.latency.ms", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var page struct {
			Data []dto.AnomalyDTO `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("decode page: %v", err)
		}
		if len(page.Data) != 1 || page.Data[0].MetricName != "llm.latency.ms" {
			t.Fatalf("filtered records = %+v", page.Data)
		}
	})
}

func incidentRouter(h *IncidentHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/incidents", h.List)
	r.Get("/incidents/{id}", h.Get)
	r.Post("/incidents/{id}/acknowledge", h.Acknowledge)
	r.Post("/incidents/{id}/resolve", h.Resolve)
	return r
}

func TestIncidentEndpoints(t *testing.T) {
	f := newHandlerFixture()
	now := time.Now()
	f.incidents.Incidents["inc-1"] = &incident.Incident{
		ID:           "inc-1",
		Title:        "Token and latency spike",
		PatternID:    "high_token_latency_spike",
		Severity:     "SEV-2",
		Status:       incident.StatusOpen,
		MetricNames:  []string{"llm.tokens.total", "llm.latency.ms"},
		AnomalyCount: 2,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	router := incidentRouter(NewIncidentHandler(f.incidentSvc, testutil.NewTestLogger()))

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents/inc-1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var inc dto.IncidentDTO
		decodeSuccess(t, rec.Body, &inc)
		if inc.ID != "inc-1" || inc.Severity != "SEV-2" {
			t.Errorf("incident = %+v", inc)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		detail := decodeError(t, rec.Body)
		if detail.Code != "NOT_FOUND" {
			t.Errorf("error code = %q, want NOT_FOUND", detail.Code)
		}
	})

	t.Run("acknowledge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/incidents/inc-1/acknowledge", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		var inc dto.IncidentDTO
		envelope := decodeSuccess(t, rec.Body, &inc)
		if inc.Status != incident.StatusAcknowledged {
			t.Errorf("status = %q, want acknowledged", inc.Status)
		}
		if envelope.Message != "Incident acknowledged" {
			t.Errorf("message = %q", envelope.Message)
		}
	})

	t.Run("acknowledge twice", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/incidents/inc-1/acknowledge", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("resolve", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/incidents/inc-1/resolve", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var inc dto.IncidentDTO
		decodeSuccess(t, rec.Body, &inc)
		if inc.Status != incident.StatusResolved {
			t.Errorf("status = %q, want resolved", inc.Status)
		}
		if inc.ResolvedAt == nil {
			t.Error("resolvedAt should be set")
		}
	})

	t.Run("list filters by status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents?status=resolved", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var page struct {
			Data       []dto.IncidentDTO `json:"data"`
			TotalItems int64             `json:"total_items"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("decode page: %v", err)
		}
		if page.TotalItems != 1 || len(page.Data) != 1 {
			t.Fatalf("got %d resolved incidents, want 1", page.TotalItems)
		}
	})
}

func TestBaselineEndpoints(t *testing.T) {
	newBaseline := func() (*BaselineHandler, *testutil.MockBaselineRepository) {
		log := testutil.NewTestLogger()
		registry := detector.NewRegistry(detector.DefaultConfig())
		repo := testutil.NewMockBaselineRepository()
		svc := services.NewBaselineService(registry, repo, log)
		return NewBaselineHandler(svc, log, validator.New()), repo
	}

	t.Run("generate", func(t *testing.T) {
		h, repo := newBaseline()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/baseline/generate",
			strings.NewReader(`{"points":200,"anomalyRate":0.02,"seed":7}`))
		h.Generate(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
		}
		var snap dto.SnapshotDTO
		envelope := decodeSuccess(t, rec.Body, &snap)
		if envelope.Message != "Baselines generated" {
			t.Errorf("message = %q", envelope.Message)
		}
		if snap.Metrics != len(detector.BaselineMetrics()) {
			t.Errorf("metrics = %d, want %d", snap.Metrics, len(detector.BaselineMetrics()))
		}
		if snap.Datapoints == 0 {
			t.Error("datapoints = 0")
		}
		if len(repo.Snapshots) != 1 {
			t.Errorf("persisted %d snapshots, want 1", len(repo.Snapshots))
		}
	})

	t.Run("generate rejects tiny history", func(t *testing.T) {
		h, _ := newBaseline()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/baseline/generate",
			strings.NewReader(`{"points":5}`))
		h.Generate(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		h, _ := newBaseline()
		gen := httptest.NewRecorder()
		h.Generate(gen, httptest.NewRequest(http.MethodPost, "/api/v1/baseline/generate",
			strings.NewReader(`{"seed":7}`)))
		if gen.Code != http.StatusCreated {
			t.Fatalf("generate status = %d", gen.Code)
		}

		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/baseline/snapshots", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var snaps []dto.SnapshotDTO
		decodeSuccess(t, rec.Body, &snaps)
		if len(snaps) != 1 {
			t.Fatalf("got %d snapshots, want 1", len(snaps))
		}
	})

	t.Run("export import roundtrip", func(t *testing.T) {
		h, _ := newBaseline()
		gen := httptest.NewRecorder()
		h.Generate(gen, httptest.NewRequest(http.MethodPost, "/api/v1/baseline/generate",
			strings.NewReader(`{"seed":7}`)))
		if gen.Code != http.StatusCreated {
			t.Fatalf("generate status = %d", gen.Code)
		}

		exp := httptest.NewRecorder()
		h.Export(exp, httptest.NewRequest(http.MethodGet, "/api/v1/baseline/export", nil))
		if exp.Code != http.StatusOK {
			t.Fatalf("export status = %d", exp.Code)
		}
		if cd := exp.Header().Get("Content-Disposition"); !strings.Contains(cd, "llmwatch-baselines.json") {
			t.Errorf("Content-Disposition = %q", cd)
		}

		fresh, _ := newBaseline()
		imp := httptest.NewRecorder()
		fresh.Import(imp, httptest.NewRequest(http.MethodPost, "/api/v1/baseline/import", bytes.NewReader(exp.Body.Bytes())))
		if imp.Code != http.StatusOK {
			t.Fatalf("import status = %d (body %s)", imp.Code, imp.Body.String())
		}
	})

	t.Run("import rejects garbage", func(t *testing.T) {
		h, _ := newBaseline()
		rec := httptest.NewRecorder()
		h.Import(rec, httptest.NewRequest(http.MethodPost, "/api/v1/baseline/import", strings.NewReader("not json")))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}
