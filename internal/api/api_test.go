package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/labstack/echo/v4"
	"github.com/stockpiled/stockpile/config"
	"github.com/stockpiled/stockpile/internal/api"
	"github.com/stockpiled/stockpile/internal/app"
	"github.com/stockpiled/stockpile/internal/inventory"
	"github.com/stockpiled/stockpile/internal/webserver"
	"github.com/stockpiled/stockpile/pkg/foodfacts"
	"github.com/stretchr/testify/require"
)

var emailSeq int64

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@example.com", prefix, atomic.AddInt64(&emailSeq, 1))
}

var (
	serverOnce sync.Once
	testServer *echo.Echo
)

// newTestServer boots the full application once and shares it across
// tests. Each test registers its own user, so all product state stays
// owner-scoped. The prometheus middleware registers collectors in the
// default registry and cannot be initialized twice in one process.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	serverOnce.Do(func() {
		cfg := config.LoadConfig("")
		cfg.System.Workdir = os.TempDir()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = fmt.Sprintf("stockpile_test_%d", os.Getpid())
		cfg.Logger.FileEnable = false
		cfg.Web.JwtSecret = "test-secret"

		application := app.NewApplication(cfg)
		application.Init(cfg)

		bus := EventBus.New()
		repo := inventory.NewGormProductRepository(application.DB())
		svc := inventory.NewService(application.DB(), repo, bus)
		proj := inventory.NewProjector(repo, bus)

		webserver.Init(application)
		api.Setup(svc, proj, foodfacts.NewClient())
		testServer = webserver.Instance()
	})
	return testServer
}

func doRequest(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	parsed := map[string]interface{}{}
	_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	return rec, parsed
}

func registerAndLogin(t *testing.T, e *echo.Echo) string {
	t.Helper()
	email := uniqueEmail("user")

	rec, resp := doRequest(t, e, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}
