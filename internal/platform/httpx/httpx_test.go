package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

func TestRespondErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrAlreadyRegistered, http.StatusConflict},
		{shared.Validationf("missing name"), http.StatusBadRequest},
		{shared.ErrInvitationExpired, http.StatusBadRequest},
		{fmt.Errorf("%w: read employees", shared.ErrForbidden), http.StatusForbidden},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{shared.ErrPendingActivation, http.StatusUnauthorized},
		{shared.ErrUnauthorized, http.StatusUnauthorized},
		{shared.ErrStorage, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("dial tcp 10.0.0.1:5432: refused"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, body.Status)
	assert.Empty(t, body.Detail)
}

type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func TestBind(t *testing.T) {
	v := validator.New()

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"a","password":"b"}`))
		var form loginForm
		require.NoError(t, Bind(httptest.NewRecorder(), req, v, &form))
		assert.Equal(t, "a", form.Username)
	})

	t.Run("missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"a"}`))
		var form loginForm
		err := Bind(httptest.NewRecorder(), req, v, &form)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Contains(t, err.Error(), "password required")
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		var form loginForm
		assert.ErrorIs(t, Bind(httptest.NewRecorder(), req, v, &form), shared.ErrValidation)
	})
}
