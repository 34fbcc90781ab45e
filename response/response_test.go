package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/wordmask/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(t *testing.T, fn func(c *gin.Context)) (int, Body) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	fn(c)

	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestSuccess(t *testing.T) {
	code, body := render(t, func(c *gin.Context) { Success(c, map[string]int{"n": 1}) })
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "success", body.Msg)
	assert.Equal(t, map[string]any{"n": float64(1)}, body.Data)
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantCode int
	}{
		{"business error", xerrors.ErrTextTooLong.WithDetail("too long"), http.StatusBadRequest, xerrors.ErrTextTooLong.Code},
		{"wrapped business error", fmt.Errorf("text 3: %w", xerrors.ErrTextTooLong), http.StatusBadRequest, xerrors.ErrTextTooLong.Code},
		{"not found", xerrors.ErrDictionaryNotFound, http.StatusNotFound, xerrors.ErrDictionaryNotFound.Code},
		{"grpc status", status.Error(codes.ResourceExhausted, "slow down"), http.StatusTooManyRequests, http.StatusTooManyRequests},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := render(t, func(c *gin.Context) { Error(c, tt.err) })
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Msg)
		})
	}
}
