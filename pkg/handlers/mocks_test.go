package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-integrity/pkg/middleware"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

type mockWriterService struct {
	writer    *models.WriterProfile
	err       error
	gotID     uuid.UUID
	gotActor  models.Actor
	gotStatus models.WriterStatus
	gotSample []string
}

func (m *mockWriterService) Register(ctx context.Context, req models.RegisterWriterRequest) (*models.WriterProfile, error) {
	m.gotActor, _ = models.GetActor(ctx)
	return m.writer, m.err
}

func (m *mockWriterService) EstablishBaseline(_ context.Context, id uuid.UUID, req models.BaselineRequest) (*models.WriterProfile, error) {
	m.gotID = id
	m.gotSample = req.Samples
	return m.writer, m.err
}

func (m *mockWriterService) SetStatus(_ context.Context, id uuid.UUID, req models.WriterStatusRequest) (*models.WriterProfile, error) {
	m.gotID = id
	m.gotStatus = req.Status
	return m.writer, m.err
}

func (m *mockWriterService) Get(_ context.Context, id uuid.UUID) (*models.WriterProfile, error) {
	m.gotID = id
	return m.writer, m.err
}

type mockAssignmentService struct {
	assignment *models.Assignment
	err        error
}

func (m *mockAssignmentService) Create(context.Context, models.CreateAssignmentRequest) (*models.Assignment, error) {
	return m.assignment, m.err
}

func (m *mockAssignmentService) Get(context.Context, uuid.UUID) (*models.Assignment, error) {
	return m.assignment, m.err
}

type mockSubmissionService struct {
	submission *models.Submission
	createErr  error
	decideErr  error
	getErr     error
	gotCreate  models.CreateSubmissionRequest
	gotDecide  models.DecisionRequest
}

func (m *mockSubmissionService) Create(_ context.Context, req models.CreateSubmissionRequest) (*models.Submission, error) {
	m.gotCreate = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.submission, nil
}

func (m *mockSubmissionService) Decide(_ context.Context, _ uuid.UUID, req models.DecisionRequest) (*models.Submission, error) {
	m.gotDecide = req
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	return m.submission, nil
}

func (m *mockSubmissionService) Get(context.Context, uuid.UUID) (*models.Submission, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.submission, nil
}

type mockAnalysisService struct {
	result *models.UploadResult
	err    error
	calls  int
}

func (m *mockAnalysisService) Analyze(context.Context, uuid.UUID) (*models.UploadResult, error) {
	m.calls++
	return m.result, m.err
}

type mockAuditService struct {
	entries   []*models.AuditLogEntry
	decision  *models.DecisionRecord
	err       error
	gotFilter models.AuditFilter
}

func (m *mockAuditService) Record(context.Context, string, uuid.UUID, string, map[string]any) error {
	return nil
}

func (m *mockAuditService) List(_ context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error) {
	m.gotFilter = filter
	return m.entries, m.err
}

func (m *mockAuditService) LatestDecision(context.Context, uuid.UUID) (*models.DecisionRecord, error) {
	return m.decision, m.err
}

type mockReportService struct {
	reports   []*models.SubmissionReport
	err       error
	gotFilter models.ReportFilter
}

func (m *mockReportService) List(_ context.Context, filter models.ReportFilter) ([]*models.SubmissionReport, error) {
	m.gotFilter = filter
	return m.reports, m.err
}

type mockSettingsService struct {
	views      []models.SettingView
	batch      *models.BatchResult
	test       *models.ProviderTestResult
	err        error
	gotUpdates []models.SettingUpdate
	gotTest    models.ProviderTestRequest
}

func (m *mockSettingsService) Get(context.Context) ([]models.SettingView, error) {
	return m.views, m.err
}

func (m *mockSettingsService) BatchUpdate(_ context.Context, updates []models.SettingUpdate) (*models.BatchResult, error) {
	m.gotUpdates = updates
	return m.batch, m.err
}

func (m *mockSettingsService) Snapshot(context.Context) (*models.Settings, error) {
	return &models.Settings{}, m.err
}

func (m *mockSettingsService) TestProviderConnection(_ context.Context, req models.ProviderTestRequest) (*models.ProviderTestResult, error) {
	m.gotTest = req
	return m.test, m.err
}

// routeRegistrar is implemented by every resource handler.
type routeRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// serve sends one request through a mux carrying h's routes.
// An empty role sends no actor headers.
func serve(t *testing.T, h routeRegistrar, method, path string, body any, actorID, role string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set(middleware.ActorIDHeader, actorID)
		req.Header.Set(middleware.ActorRoleHeader, role)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps an ApiResponse into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope")
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}
