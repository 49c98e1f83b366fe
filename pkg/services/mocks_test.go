package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/intelligence"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

var (
	adminCtx  = models.WithActor(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin})
	writerCtx = models.WithActor(context.Background(), models.Actor{ID: "writer-1", Role: models.RoleWriter})
)

// mockTransactor runs fn directly. txErr simulates a failed commit.
type mockTransactor struct {
	calls int
	txErr error
}

func (m *mockTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return m.txErr
}

type mockAuditService struct {
	mu        sync.Mutex
	entries   []*models.AuditLogEntry
	recordErr error
}

func (m *mockAuditService) Record(ctx context.Context, entityType string, entityID uuid.UUID, action string, details map[string]any) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, &models.AuditLogEntry{
		ID:         uuid.New(),
		Actor:      models.ActorOrSystem(ctx).ID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Details:    details,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (m *mockAuditService) List(context.Context, models.AuditFilter) ([]*models.AuditLogEntry, error) {
	return m.entries, nil
}

func (m *mockAuditService) LatestDecision(context.Context, uuid.UUID) (*models.DecisionRecord, error) {
	return nil, apperrors.ErrNotFound
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type mockWriterRepo struct {
	writers   map[uuid.UUID]*models.WriterProfile
	createErr error
}

func newMockWriterRepo() *mockWriterRepo {
	return &mockWriterRepo{writers: make(map[uuid.UUID]*models.WriterProfile)}
}

func (m *mockWriterRepo) add(userID string, status models.WriterStatus, baseline *stylometry.Features) *models.WriterProfile {
	w := &models.WriterProfile{ID: uuid.New(), UserID: userID, Status: status, BaselineMetrics: baseline}
	m.writers[w.ID] = w
	return w
}

func (m *mockWriterRepo) Create(_ context.Context, w *models.WriterProfile) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.writers {
		if existing.UserID == w.UserID {
			return fmt.Errorf("writer %s: %w", w.UserID, apperrors.ErrStateConflict)
		}
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	copied := *w
	m.writers[w.ID] = &copied
	return nil
}

func (m *mockWriterRepo) GetByID(_ context.Context, id uuid.UUID) (*models.WriterProfile, error) {
	w, ok := m.writers[id]
	if !ok {
		return nil, fmt.Errorf("writer %s: %w", id, apperrors.ErrNotFound)
	}
	copied := *w
	return &copied, nil
}

func (m *mockWriterRepo) GetByUserID(_ context.Context, userID string) (*models.WriterProfile, error) {
	for _, w := range m.writers {
		if w.UserID == userID {
			copied := *w
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("writer %s: %w", userID, apperrors.ErrNotFound)
}

func (m *mockWriterRepo) UpdateBaseline(_ context.Context, id uuid.UUID, baseline *stylometry.Features, status models.WriterStatus) error {
	w, ok := m.writers[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	w.BaselineMetrics = baseline
	w.BaselineUpdatedAt = &baseline.Timestamp
	w.Status = status
	return nil
}

func (m *mockWriterRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.WriterStatus) error {
	w, ok := m.writers[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	w.Status = status
	return nil
}

type mockAssignmentRepo struct {
	assignments map[uuid.UUID]*models.Assignment
	locked      []uuid.UUID
	updateErr   error
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{assignments: make(map[uuid.UUID]*models.Assignment)}
}

func (m *mockAssignmentRepo) add(writerID uuid.UUID, status models.AssignmentStatus) *models.Assignment {
	a := &models.Assignment{ID: uuid.New(), WriterID: writerID, Title: "Essay", Status: status}
	m.assignments[a.ID] = a
	return a
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *models.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	copied := *a
	m.assignments[a.ID] = &copied
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, apperrors.ErrNotFound)
	}
	copied := *a
	return &copied, nil
}

func (m *mockAssignmentRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	m.locked = append(m.locked, id)
	return m.GetByID(ctx, id)
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *models.Assignment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *a
	m.assignments[a.ID] = &copied
	return nil
}

type mockSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uuid.UUID]*models.Submission
	order       []uuid.UUID
	corpus      []string
	corpusErr   error
	recordErr   error
	listCalls   int
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{submissions: make(map[uuid.UUID]*models.Submission)}
}

func (m *mockSubmissionRepo) add(sub *models.Submission) *models.Submission {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	m.submissions[sub.ID] = sub
	m.order = append(m.order, sub.ID)
	return sub
}

func (m *mockSubmissionRepo) Create(_ context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.ID = uuid.New()
	copied := *sub
	m.submissions[sub.ID] = &copied
	m.order = append(m.order, sub.ID)
	return nil
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}
	copied := *sub
	return &copied, nil
}

func (m *mockSubmissionRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return m.GetByID(ctx, id)
}

func (m *mockSubmissionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.SubmissionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	sub.Status = status
	return nil
}

func (m *mockSubmissionRepo) RecordAnalysis(_ context.Context, id uuid.UUID, scores models.AnalysisScores) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	sub.AIRiskScore = scores.AIRiskScore
	sub.SimilarityScore = scores.SimilarityScore
	sub.CitationScore = scores.CitationScore
	sub.AnalysisStatus = models.AnalysisCompleted
	return nil
}

func (m *mockSubmissionRepo) SetAnalysisStatus(_ context.Context, id uuid.UUID, status models.AnalysisStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	sub.AnalysisStatus = status
	return nil
}

// List returns submissions newest first, like the real repository.
func (m *mockSubmissionRepo) List(_ context.Context, filter repositories.SubmissionFilter) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	var matched []*models.Submission
	for i := len(m.order) - 1; i >= 0; i-- {
		sub := m.submissions[m.order[i]]
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		copied := *sub
		matched = append(matched, &copied)
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (m *mockSubmissionRepo) ListCorpus(context.Context, uuid.UUID, int) ([]string, error) {
	return m.corpus, m.corpusErr
}

type mockAnalysisResultRepo struct {
	results   []*models.AnalysisResult
	createErr error
}

func (m *mockAnalysisResultRepo) Create(_ context.Context, r *models.AnalysisResult) error {
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = uuid.New()
	m.results = append(m.results, r)
	return nil
}

func (m *mockAnalysisResultRepo) GetLatest(_ context.Context, submissionID uuid.UUID) (*models.AnalysisResult, error) {
	for i := len(m.results) - 1; i >= 0; i-- {
		if m.results[i].SubmissionID == submissionID {
			return m.results[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// mockSettings serves a fixed snapshot.
type mockSettings struct {
	snap *models.Settings
	err  error
}

func newMockSettings() *mockSettings {
	return &mockSettings{snap: &models.Settings{
		Provider:            "mock",
		APIKeys:             map[string]string{},
		Thresholds:          models.DefaultThresholds(),
		EnableLLMAnalysis:   true,
		EnableStyleAnalysis: true,
		EnableCitationCheck: true,
		Generation:          1,
	}}
}

func (m *mockSettings) Get(context.Context) ([]models.SettingView, error) { return nil, nil }

func (m *mockSettings) BatchUpdate(context.Context, []models.SettingUpdate) (*models.BatchResult, error) {
	return nil, nil
}

func (m *mockSettings) Snapshot(context.Context) (*models.Settings, error) { return m.snap, m.err }

func (m *mockSettings) TestProviderConnection(context.Context, models.ProviderTestRequest) (*models.ProviderTestResult, error) {
	return nil, nil
}

type mockAdapter struct {
	result *intelligence.Result
	err    error
	calls  int
}

func (m *mockAdapter) Analyze(ctx context.Context, req intelligence.Request) (*intelligence.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockTester struct {
	gotProvider intelligence.ProviderName
	gotKey      string
	result      *models.ProviderTestResult
}

func (m *mockTester) TestConnection(_ context.Context, name intelligence.ProviderName, apiKey string) *models.ProviderTestResult {
	m.gotProvider = name
	m.gotKey = apiKey
	if m.result != nil {
		return m.result
	}
	return &models.ProviderTestResult{Success: true, Message: "ok"}
}

type mockSystemConfigRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.SystemConfig
	listCalls int
	upsertErr map[string]error

	// When set, the next List reads the rows, signals listRead and waits for listRelease.
	listRead    chan struct{}
	listRelease chan struct{}
}

func newMockSystemConfigRepo() *mockSystemConfigRepo {
	return &mockSystemConfigRepo{rows: make(map[string]*models.SystemConfig), upsertErr: make(map[string]error)}
}

// holdNextList makes the next List call block after it has read the rows.
func (m *mockSystemConfigRepo) holdNextList() (read <-chan struct{}, release chan<- struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listRead = make(chan struct{})
	m.listRelease = make(chan struct{})
	return m.listRead, m.listRelease
}

func (m *mockSystemConfigRepo) List(context.Context) ([]*models.SystemConfig, error) {
	m.mu.Lock()
	m.listCalls++
	out := make([]*models.SystemConfig, 0, len(m.rows))
	for _, r := range m.rows {
		copied := *r
		out = append(out, &copied)
	}
	read, release := m.listRead, m.listRelease
	m.listRead, m.listRelease = nil, nil
	m.mu.Unlock()

	if read != nil {
		close(read)
		<-release
	}
	return out, nil
}

func (m *mockSystemConfigRepo) Upsert(_ context.Context, row *models.SystemConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.upsertErr[row.Key]; err != nil {
		return err
	}
	copied := *row
	copied.UpdatedAt = time.Now()
	m.rows[row.Key] = &copied
	return nil
}

const sampleText = "The committee reviewed the proposal in detail. Several members raised concerns about " +
	"the budget, while others focused on the timeline. After a long discussion, the group agreed to " +
	"revisit the plan next month with updated figures."
