package httpx

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProblemExtraFlattensMembers(t *testing.T) {
	rr := httptest.NewRecorder()
	ProblemExtra(rr, 422, "Budget Exceeded", "over by 100", map[string]any{
		"remaining": "200.00",
		"over_by":   "100.00",
	})

	require.Equal(t, 422, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "Budget Exceeded", body["title"])
	require.EqualValues(t, 422, body["status"])
	require.Equal(t, "200.00", body["remaining"])
	require.Equal(t, "100.00", body["over_by"])
}

func TestInternalHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	Internal(rr)

	require.Equal(t, 500, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotContains(t, body, "detail")
}

func TestBadRequestCarriesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	BadRequest(rr, errors.New("tenant_id required"))

	require.Equal(t, 400, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "tenant_id required", body["detail"])
}
