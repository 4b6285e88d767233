package internal

import (
	"encoding/json"
	goerrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugRouter_Store_FiltersByPrefix(t *testing.T) {
	req := require.New(t)
	rows := func() ([]InspectRow, error) {
		return []InspectRow{
			{Key: "app_user", Size: 42},
			{Key: "other", Size: 3},
		}, nil
	}
	router := NewDebugRouter(func() any { return nil }, rows)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/store?prefix=app_", nil))

	req.Equal(http.StatusOK, rec.Code)
	var got []InspectRow
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	req.Equal([]InspectRow{{Key: "app_user", Size: 42}}, got)
}

func TestDebugRouter_Store_Error(t *testing.T) {
	req := require.New(t)
	router := NewDebugRouter(func() any { return nil }, func() ([]InspectRow, error) {
		return nil, goerrors.New("closed")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/store", nil))

	req.Equal(http.StatusInternalServerError, rec.Code)
}

func TestDebugRouter_Stats(t *testing.T) {
	req := require.New(t)
	router := NewDebugRouter(func() any { return map[string]int{"loads_issued": 3} }, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/stats", nil))

	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"loads_issued":3}`, rec.Body.String())
}
