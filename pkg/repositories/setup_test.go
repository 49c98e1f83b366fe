//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
	"github.com/ekaya-inc/ekaya-integrity/pkg/testhelpers"
)

// repoTestContext holds the repositories under test and a clean database.
type repoTestContext struct {
	t           *testing.T
	engineDB    *testhelpers.EngineDB
	writers     WriterRepository
	assignments AssignmentRepository
	submissions SubmissionRepository
	analyses    AnalysisResultRepository
	configs     SystemConfigRepository
	audit       AuditRepository
}

// setupRepoTest initializes the test context with the shared testcontainer.
func setupRepoTest(t *testing.T) *repoTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	engineDB.Reset(t)

	db := engineDB.DB
	return &repoTestContext{
		t:           t,
		engineDB:    engineDB,
		writers:     NewWriterRepository(db),
		assignments: NewAssignmentRepository(db),
		submissions: NewSubmissionRepository(db),
		analyses:    NewAnalysisResultRepository(db),
		configs:     NewSystemConfigRepository(db),
		audit:       NewAuditRepository(db),
	}
}

func (tc *repoTestContext) createWriter(userID string) *models.WriterProfile {
	tc.t.Helper()
	w := &models.WriterProfile{UserID: userID, DisplayName: "Writer " + userID}
	require.NoError(tc.t, tc.writers.Create(context.Background(), w))
	return w
}

func (tc *repoTestContext) createAssignment(writerID uuid.UUID) *models.Assignment {
	tc.t.Helper()
	a := &models.Assignment{WriterID: writerID, Title: "Essay on mills"}
	require.NoError(tc.t, tc.assignments.Create(context.Background(), a))
	return a
}

func (tc *repoTestContext) createSubmission(a *models.Assignment, content string) *models.Submission {
	tc.t.Helper()
	s := &models.Submission{
		AssignmentID:   a.ID,
		WriterID:       a.WriterID,
		Content:        content,
		Features:       &stylometry.Features{AvgSentenceLength: 12, VocabRichness: 0.6, ReadabilityScore: 55, WordCount: 40, Timestamp: time.Now().UTC()},
		IntegrityScore: 91,
	}
	require.NoError(tc.t, tc.submissions.Create(context.Background(), s))
	return s
}
