package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
)

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	if err := ErrorResponse(w, http.StatusNotFound, "not_found", "resource not found"); err != nil {
		t.Fatalf("ErrorResponse returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["error"] != "not_found" || body["message"] != "resource not found" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestWriteJSON_Status200DoesNotWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteJSON(w, http.StatusOK, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"key":"value"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestWriteJSON_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteJSON(w, http.StatusOK, make(chan int)); err == nil {
		t.Error("expected error for unencodable data, got nil")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation field", apperrors.NewValidationError("notes", "are required"), http.StatusBadRequest, "validation_failed"},
		{"wrapped validation", fmt.Errorf("%w: bad provider", apperrors.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"not owner", fmt.Errorf("create: %w", apperrors.ErrNotAssignmentOwner), http.StatusForbidden, "not_assignment_owner"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", fmt.Errorf("writer x: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict code", fmt.Errorf("decide: %w", apperrors.ErrSubmissionSuperseded), http.StatusConflict, "submission_superseded"},
		{"bare conflict", fmt.Errorf("dup: %w", apperrors.ErrStateConflict), http.StatusConflict, "conflict"},
		{"dependency", fmt.Errorf("%w: openai timeout", apperrors.ErrDependencyFailed), http.StatusBadGateway, "analysis_unavailable"},
		{"key mismatch", fmt.Errorf("%w: openai_api_key", apperrors.ErrCredentialsKeyMismatch), http.StatusInternalServerError, "credentials_key_mismatch"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classifyError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, message)
		})
	}
}

func TestClassifyError_InternalDetailsNotLeaked(t *testing.T) {
	_, _, message := classifyError(errors.New("pq: password authentication failed for user integrity"))
	assert.NotContains(t, message, "password")
}

func TestDecodeJSON_RejectsUnknownFieldsAndLargeBodies(t *testing.T) {
	var dst struct {
		Content string `json:"content"`
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"x","extra":1}`))
	assert.False(t, decodeJSON(w, r, &dst, zap.NewNop()))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	big := `{"content":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	assert.False(t, decodeJSON(w, r, &dst, zap.NewNop()))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
