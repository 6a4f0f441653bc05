package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=5"`
}

func newEchoEngine() *gin.Engine {
	r := gin.New()
	r.POST("/echo", func(c *gin.Context) {
		var req echoRequest
		if !bindAndValidate(c, &req) {
			return
		}
		response.Success(c, http.StatusOK, gin.H{"email": req.Email})
	})
	return r
}

func postJSON(t *testing.T, engine *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestBindAndValidateAcceptsValidPayload(t *testing.T) {
	rec := postJSON(t, newEchoEngine(), `{"email":"asha@example.com","name":"Asha"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "asha@example.com")
}

func TestBindAndValidateRejectsMalformedJSON(t *testing.T) {
	rec := postJSON(t, newEchoEngine(), `{"email":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid JSON payload")
}

func TestBindAndValidateReportsFieldErrors(t *testing.T) {
	rec := postJSON(t, newEchoEngine(), `{"email":"not-an-email","name":"too long name"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "details")
	require.Contains(t, body, "email")
}
