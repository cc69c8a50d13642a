package utils

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline-dev/threadline/shared/errors"
)

func TestDecodeValidate(t *testing.T) {
	type TestStruct struct {
		Field1 string `json:"field1" validate:"required"`
		Field2 int    `json:"field2"`
	}

	tests := []struct {
		name        string
		requestBody string
		expectedErr *errors.ErrorWithStatusCode
	}{
		{
			name:        "Valid JSON and Validation",
			requestBody: `{"field1": "value", "field2": 123}`,
		},
		{
			name:        "Valid JSON and Validation [2]",
			requestBody: `{"field1": "value"}`,
		},
		{
			name:        "Invalid JSON",
			requestBody: `{"field1": "value", "field2": 123`, // Missing closing brace
			expectedErr: &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400},
		},
		{
			name:        "Missing Required Field",
			requestBody: `{"field2": 123}`,
			expectedErr: &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: 400},
		},
		{
			name:        "Empty Body",
			requestBody: "",
			expectedErr: &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte(tt.requestBody)))

			err := DecodeValidate(req.Body, &TestStruct{})

			if tt.expectedErr == nil {
				assert.NoError(t, err, "Expected no error")
			} else {
				e, ok := err.(*errors.ErrorWithStatusCode)
				require.True(t, ok, "Error should be ErrorWithStatusCode")
				assert.Equal(t, tt.expectedErr.Message, e.Message, "Error message mismatch")
				assert.Equal(t, tt.expectedErr.StatusCode, e.StatusCode, "Status code mismatch")
			}
		})
	}
}

func TestWriteErrorAndStatusCode(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "ErrorWithStatusCode",
			err:          &errors.ErrorWithStatusCode{Message: "Bad thing", StatusCode: http.StatusTeapot},
			expectedCode: http.StatusTeapot,
			expectedBody: "Bad thing",
		},
		{
			name:         "NotFound",
			err:          errors.NotFound("convo", "abc"),
			expectedCode: http.StatusNotFound,
			expectedBody: "convo abc not found",
		},
		{
			name:         "Wrapped validation error",
			err:          fmt.Errorf("create: %w", &errors.ValidationError{Message: "Text is required"}),
			expectedCode: http.StatusBadRequest,
			expectedBody: "Text is required",
		},
		{
			name:         "Forbidden",
			err:          &errors.ForbiddenError{Message: "nope"},
			expectedCode: http.StatusForbidden,
			expectedBody: "nope",
		},
		{
			name:         "Conflict",
			err:          &errors.ConflictError{Message: "taken"},
			expectedCode: http.StatusConflict,
			expectedBody: "taken",
		},
		{
			name:         "Deletion failure hides the cause",
			err:          &errors.DeletionFailedError{ConvoId: "c", Step: errors.StepDelete, Err: stderrors.New("pq: secret detail")},
			expectedCode: http.StatusInternalServerError,
			expectedBody: "Internal server error",
		},
		{
			name:         "Plain error",
			err:          stderrors.New("db exploded"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteErrorAndStatusCode(rr, tt.err)
			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			assert.NotContains(t, rr.Body.String(), "secret detail")
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, rr.Body.String())
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		realIP     string
		forwarded  string
		remoteAddr string
		expected   string
		wantErr    bool
	}{
		{name: "X-Real-IP", realIP: "1.2.3.4", remoteAddr: "9.9.9.9:1", expected: "1.2.3.4"},
		{name: "X-Forwarded-For first valid", forwarded: "garbage, 5.6.7.8", remoteAddr: "9.9.9.9:1", expected: "5.6.7.8"},
		{name: "RemoteAddr", remoteAddr: "9.9.9.9:1234", expected: "9.9.9.9"},
		{name: "Nothing usable", remoteAddr: "nonsense", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", strings.NewReader(""))
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			ip, err := GetIP(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ip)
		})
	}
}
