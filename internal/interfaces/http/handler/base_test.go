package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandlerHandleError(t *testing.T) {
	h := &BaseHandler{}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := newTestContext()
		h.HandleError(c, nil)
		assert.Empty(t, w.Body.String())
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		c, w := newTestContext()
		h.HandleError(c, shared.ErrNotFound)

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("concurrency conflict maps to 409", func(t *testing.T) {
		c, w := newTestContext()
		h.HandleError(c, shared.ErrConcurrencyConflict)

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeConcurrencyConflict, resp.Error.Code)
	})

	t.Run("allocation failure maps to 422", func(t *testing.T) {
		c, w := newTestContext()
		h.HandleError(c, shared.NewDomainError("INVALID_ALLOCATION", "Allocation exceeds remaining balance"))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInvalidAllocation, resp.Error.Code)
		assert.Equal(t, "Allocation exceeds remaining balance", resp.Error.Message)
	})

	t.Run("wrapped domain error still maps by code", func(t *testing.T) {
		c, w := newTestContext()
		h.HandleError(c, fmt.Errorf("failed to load dues: %w", shared.ErrNotFound))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("constructor validation code maps to 400", func(t *testing.T) {
		c, w := newTestContext()
		h.HandleError(c, shared.NewDomainError("INVALID_MONTH_KEY", "Due month \"x\" is not a valid month key"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("unknown error maps to 500", func(t *testing.T) {
		c, w := newTestContext()
		h.HandleError(c, fmt.Errorf("driver: bad connection"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		// Internal detail never leaks to the client
		assert.NotContains(t, resp.Error.Message, "driver")
	})

	t.Run("request id is echoed in error payload", func(t *testing.T) {
		c, w := newTestContext()
		c.Set("request_id", "req-42")
		h.HandleError(c, shared.ErrNotFound)

		resp := decodeResponse(t, w)
		assert.Equal(t, "req-42", resp.Error.RequestID)
	})
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success envelope", func(t *testing.T) {
		c, w := newTestContext()
		h.Success(c, gin.H{"ok": true})

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		assert.Nil(t, resp.Error)
	})

	t.Run("success with meta", func(t *testing.T) {
		c, w := newTestContext()
		h.SuccessWithMeta(c, []int{1, 2, 3}, 3, 1, 20)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(3), resp.Meta.Total)
		assert.Equal(t, 1, resp.Meta.TotalPages)
	})
}

func TestGetUserID(t *testing.T) {
	t.Run("parses header", func(t *testing.T) {
		c, _ := newTestContext()
		c.Request.Header.Set("X-User-ID", "d7f7d2aa-9c31-4f4e-9f2a-1f2b3c4d5e6f")

		id, err := getUserID(c)
		assert.NoError(t, err)
		assert.Equal(t, "d7f7d2aa-9c31-4f4e-9f2a-1f2b3c4d5e6f", id.String())
	})

	t.Run("missing header errors", func(t *testing.T) {
		c, _ := newTestContext()
		_, err := getUserID(c)
		assert.Error(t, err)
	})

	t.Run("malformed header errors", func(t *testing.T) {
		c, _ := newTestContext()
		c.Request.Header.Set("X-User-ID", "not-a-uuid")
		_, err := getUserID(c)
		assert.Error(t, err)
	})
}
