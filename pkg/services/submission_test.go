package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

type submissionFixture struct {
	svc         SubmissionService
	submissions *mockSubmissionRepo
	assignments *mockAssignmentRepo
	writers     *mockWriterRepo
	settings    *mockSettings
	audit       *mockAuditService
	tx          *mockTransactor
	writer      *models.WriterProfile
	assignment  *models.Assignment
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()
	f := &submissionFixture{
		submissions: newMockSubmissionRepo(),
		assignments: newMockAssignmentRepo(),
		writers:     newMockWriterRepo(),
		settings:    newMockSettings(),
		audit:       &mockAuditService{},
		tx:          &mockTransactor{},
	}
	f.svc = NewSubmissionService(f.submissions, f.assignments, f.writers, f.settings, f.audit, f.tx, nil, zap.NewNop())
	f.writer = f.writers.add("writer-1", models.WriterActive, stylometry.ExtractFeatures(sampleText))
	f.assignment = f.assignments.add(f.writer.ID, models.AssignmentPending)
	return f
}

func (f *submissionFixture) submit(t *testing.T) *models.Submission {
	t.Helper()
	sub, err := f.svc.Create(writerCtx, models.CreateSubmissionRequest{
		AssignmentID: f.assignment.ID,
		WriterUserID: "writer-1",
		Content:      sampleText,
	})
	require.NoError(t, err)
	return sub
}

func TestSubmissionService_CreateAdvancesAssignment(t *testing.T) {
	f := newSubmissionFixture(t)

	sub := f.submit(t)

	assert.Equal(t, models.SubmissionPendingReview, sub.Status)
	assert.Equal(t, models.AnalysisPending, sub.AnalysisStatus)
	assert.True(t, sub.StyleCompared)
	assert.Equal(t, 100.0, sub.IntegrityScore, "identical text matches its own baseline")

	assignment := f.assignments.assignments[f.assignment.ID]
	assert.Equal(t, models.AssignmentInProgress, assignment.Status)
	require.NotNil(t, assignment.CurrentSubmissionID)
	assert.Equal(t, sub.ID, *assignment.CurrentSubmissionID)
	assert.Equal(t, []uuid.UUID{f.assignment.ID}, f.assignments.locked)
	assert.Equal(t, []string{models.AuditActionCreate}, f.audit.actions())
}

func TestSubmissionService_CreateNeutralWithoutBaseline(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *submissionFixture)
	}{
		{
			name:  "no baseline",
			setup: func(f *submissionFixture) { f.writers.writers[f.writer.ID].BaselineMetrics = nil },
		},
		{
			name:  "style analysis disabled",
			setup: func(f *submissionFixture) { f.settings.snap.EnableStyleAnalysis = false },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubmissionFixture(t)
			tt.setup(f)
			sub := f.submit(t)
			assert.Equal(t, stylometry.NeutralScore, sub.IntegrityScore)
			assert.False(t, sub.StyleCompared)
		})
	}
}

func TestSubmissionService_CreateGuards(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *submissionFixture) models.CreateSubmissionRequest
		check   func(t *testing.T, err error)
		noWrite bool
	}{
		{
			name: "content too short",
			setup: func(f *submissionFixture) models.CreateSubmissionRequest {
				return models.CreateSubmissionRequest{AssignmentID: f.assignment.ID, WriterUserID: "writer-1", Content: "Too short."}
			},
			check: func(t *testing.T, err error) {
				var verr *apperrors.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "content", verr.Field)
			},
		},
		{
			name: "not a writer",
			setup: func(f *submissionFixture) models.CreateSubmissionRequest {
				return models.CreateSubmissionRequest{AssignmentID: f.assignment.ID, WriterUserID: "stranger", Content: sampleText}
			},
			check: func(t *testing.T, err error) { assert.True(t, errors.Is(err, apperrors.ErrForbidden)) },
		},
		{
			name: "someone else's assignment",
			setup: func(f *submissionFixture) models.CreateSubmissionRequest {
				other := f.writers.add("writer-2", models.WriterActive, nil)
				a := f.assignments.add(other.ID, models.AssignmentPending)
				return models.CreateSubmissionRequest{AssignmentID: a.ID, WriterUserID: "writer-1", Content: sampleText}
			},
			check: func(t *testing.T, err error) { assert.True(t, errors.Is(err, apperrors.ErrNotAssignmentOwner)) },
		},
		{
			name: "suspended writer",
			setup: func(f *submissionFixture) models.CreateSubmissionRequest {
				f.writers.writers[f.writer.ID].Status = models.WriterSuspended
				return models.CreateSubmissionRequest{AssignmentID: f.assignment.ID, WriterUserID: "writer-1", Content: sampleText}
			},
			check: func(t *testing.T, err error) { assert.Equal(t, "writer_suspended", apperrors.ConflictCode(err)) },
		},
		{
			name: "completed assignment",
			setup: func(f *submissionFixture) models.CreateSubmissionRequest {
				f.assignments.assignments[f.assignment.ID].Status = models.AssignmentCompleted
				return models.CreateSubmissionRequest{AssignmentID: f.assignment.ID, WriterUserID: "writer-1", Content: sampleText}
			},
			check: func(t *testing.T, err error) { assert.Equal(t, "assignment_completed", apperrors.ConflictCode(err)) },
		},
		{
			name: "unknown assignment",
			setup: func(f *submissionFixture) models.CreateSubmissionRequest {
				return models.CreateSubmissionRequest{AssignmentID: uuid.New(), WriterUserID: "writer-1", Content: sampleText}
			},
			check: func(t *testing.T, err error) { assert.True(t, errors.Is(err, apperrors.ErrNotFound)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubmissionFixture(t)
			req := tt.setup(f)
			_, err := f.svc.Create(writerCtx, req)
			require.Error(t, err)
			tt.check(t, err)
			assert.Empty(t, f.submissions.submissions)
			assert.Empty(t, f.audit.actions())
		})
	}
}

func TestSubmissionService_ResubmissionOnlyAfterRewrite(t *testing.T) {
	f := newSubmissionFixture(t)
	first := f.submit(t)

	_, err := f.svc.Create(writerCtx, models.CreateSubmissionRequest{
		AssignmentID: f.assignment.ID, WriterUserID: "writer-1", Content: sampleText,
	})
	assert.Equal(t, "submission_pending", apperrors.ConflictCode(err))

	_, err = f.svc.Decide(adminCtx, first.ID, models.DecisionRequest{Status: models.SubmissionNeedsRewrite, Notes: "Cite sources."})
	require.NoError(t, err)

	second := f.submit(t)
	assignment := f.assignments.assignments[f.assignment.ID]
	assert.Equal(t, second.ID, *assignment.CurrentSubmissionID)
	assert.Equal(t, models.AssignmentInProgress, assignment.Status)

	// The earlier submission can no longer be decided.
	_, err = f.svc.Decide(adminCtx, first.ID, models.DecisionRequest{Status: models.SubmissionApproved})
	assert.Equal(t, "submission_superseded", apperrors.ConflictCode(err))
}

func TestSubmissionService_DecideApproveCompletesAssignment(t *testing.T) {
	f := newSubmissionFixture(t)
	sub := f.submit(t)

	decided, err := f.svc.Decide(adminCtx, sub.ID, models.DecisionRequest{Status: models.SubmissionApproved})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, decided.Status)
	assert.Equal(t, models.AssignmentCompleted, f.assignments.assignments[f.assignment.ID].Status)

	require.Len(t, f.audit.entries, 2)
	decision := f.audit.entries[1]
	assert.Equal(t, models.AuditActionStatusChange, decision.Action)
	assert.Equal(t, "admin-1", decision.Actor)
	assert.Equal(t, "PENDING_REVIEW", decision.Details["from"])
	assert.Equal(t, "APPROVED", decision.Details["to"])

	_, err = f.svc.Decide(adminCtx, sub.ID, models.DecisionRequest{Status: models.SubmissionRejected, Notes: "late"})
	assert.Equal(t, "submission_finalized", apperrors.ConflictCode(err))

	_, err = f.svc.Create(writerCtx, models.CreateSubmissionRequest{
		AssignmentID: f.assignment.ID, WriterUserID: "writer-1", Content: sampleText,
	})
	assert.Equal(t, "assignment_completed", apperrors.ConflictCode(err))
}

func TestSubmissionService_DecideRejectKeepsAssignmentOpen(t *testing.T) {
	f := newSubmissionFixture(t)
	sub := f.submit(t)

	_, err := f.svc.Decide(adminCtx, sub.ID, models.DecisionRequest{Status: models.SubmissionRejected, Notes: "Copied from a peer."})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentInProgress, f.assignments.assignments[f.assignment.ID].Status)
	assert.Equal(t, "Copied from a peer.", f.audit.entries[1].Details["notes"])
}

func TestSubmissionService_DecideValidation(t *testing.T) {
	f := newSubmissionFixture(t)
	sub := f.submit(t)

	tests := []struct {
		name  string
		req   models.DecisionRequest
		field string
	}{
		{name: "rejection without notes", req: models.DecisionRequest{Status: models.SubmissionRejected, Notes: "   "}, field: "notes"},
		{name: "rewrite without notes", req: models.DecisionRequest{Status: models.SubmissionNeedsRewrite}, field: "notes"},
		{name: "pending is not a decision", req: models.DecisionRequest{Status: models.SubmissionPendingReview}, field: "status"},
		{name: "missing status", req: models.DecisionRequest{}, field: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Decide(adminCtx, sub.ID, tt.req)
			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := f.svc.Decide(writerCtx, sub.ID, models.DecisionRequest{Status: models.SubmissionApproved})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.Decide(adminCtx, uuid.New(), models.DecisionRequest{Status: models.SubmissionApproved})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.Equal(t, models.SubmissionPendingReview, f.submissions.submissions[sub.ID].Status)
	assert.Len(t, f.audit.entries, 1)
}

func TestSubmissionService_DecideAuditFailureFailsDecision(t *testing.T) {
	f := newSubmissionFixture(t)
	sub := f.submit(t)
	f.audit.recordErr = errors.New("audit insert failed")

	_, err := f.svc.Decide(adminCtx, sub.ID, models.DecisionRequest{Status: models.SubmissionApproved})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit insert failed")
}

func TestSubmissionService_GetRequiresOwnership(t *testing.T) {
	f := newSubmissionFixture(t)
	sub := f.submit(t)

	got, err := f.svc.Get(writerCtx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	f.writers.add("writer-2", models.WriterActive, nil)
	otherCtx := models.WithActor(adminCtx, models.Actor{ID: "writer-2", Role: models.RoleWriter})
	_, err = f.svc.Get(otherCtx, sub.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotAssignmentOwner))
}
