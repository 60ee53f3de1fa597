package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
	"github.com/luanpereira/vitrine-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var envelope types.SuccessEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "world", data["hello"])
}

func TestWriteErrorValidationExposesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	logg := logger.New(logger.Options{ServiceName: "vitrine-test", Output: &bytes.Buffer{}})

	WriteError(context.Background(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "postal code must have exactly 8 digits"))

	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, string(pkgerrors.CodeValidation), envelope.Error.Code)
	assert.Equal(t, "postal code must have exactly 8 digits", envelope.Error.Message)
}

func TestWriteErrorInternalHidesMessage(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeInternal, "sql: connection refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotContains(t, envelope.Error.Message, "sql")
}

func TestWriteErrorWrapsUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(context.Background(), nil, w, assert.AnError)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, string(pkgerrors.CodeInternal), envelope.Error.Code)
}

func TestWriteErrorConfiguration(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeConfiguration, "no active shipping provider configured"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "no active shipping provider configured", envelope.Error.Message)
}
