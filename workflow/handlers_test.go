package workflow

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func performJSON(r *gin.Engine, method string, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func feePairRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/recon/fee-pairs", CreateFeePairHandler)
	r.POST("/recon/fee-pairs/:id/toggle", ToggleFeePairHandler)
	r.GET("/recon/jobs/:id/errors", JobErrorsHandler)
	return r
}

func TestCreateFeePairHandlerValidation(t *testing.T) {
	r := feePairRouter()

	w := performJSON(r, http.MethodPost, "/recon/fee-pairs", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Kind")
	assert.Contains(t, w.Body.String(), "TransactionType")
	assert.Contains(t, w.Body.String(), "Counterparty")

	w = performJSON(r, http.MethodPost, "/recon/fee-pairs", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleFeePairHandlerValidation(t *testing.T) {
	r := feePairRouter()

	w := performJSON(r, http.MethodPost, "/recon/fee-pairs/abc/toggle", `{"isActive":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(r, http.MethodPost, "/recon/fee-pairs/0/toggle", `{"isActive":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing isActive must fail binding, not default to false.
	w = performJSON(r, http.MethodPost, "/recon/fee-pairs/3/toggle", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "IsActive")
}

func TestJobErrorsHandlerValidation(t *testing.T) {
	r := feePairRouter()

	w := performJSON(r, http.MethodGet, "/recon/jobs/abc/errors", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
