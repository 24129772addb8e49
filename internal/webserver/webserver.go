package webserver

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stockpiled/stockpile/internal/app"
	"github.com/stockpiled/stockpile/pkg/common"
	"go.uber.org/zap"
)

// WebServer hosts the HTTP API.
type WebServer struct {
	root   *echo.Echo
	pub    *echo.Group
	api    *echo.Group
	appCtx *app.Application
}

var server *WebServer

// Init builds the echo engine with the application's middleware stack.
func Init(application *app.Application) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Validator = &payloadValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("stockpile"))
	e.Use(zapLogger)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, application)
			return next(c)
		}
	})

	e.GET("/metrics", echoprometheus.NewHandler())

	secret := common.GetSecret(application.Config().Web.JwtSecret)
	jwtmw := echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(secret),
		TokenLookup: "header:Authorization:Bearer ,query:token",
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, map[string]interface{}{
				"code":    "UNAUTHORIZED",
				"message": "Authentication required",
			})
		},
	})

	server = &WebServer{
		root:   e,
		pub:    e.Group("/api/auth"),
		api:    e.Group("/api", jwtmw),
		appCtx: application,
	}
	return server
}

// Listen starts the server on the configured address.
func Listen() error {
	cfg := server.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.L().Info("starting web server", zap.String("addr", addr))
	return server.root.Start(addr)
}

// Instance returns the underlying echo engine (used in tests).
func Instance() *echo.Echo {
	return server.root
}

// JwtSecret returns the signing secret shared with the auth handlers.
func JwtSecret() string {
	return common.GetSecret(server.appCtx.Config().Web.JwtSecret)
}

// PubPOST registers an unauthenticated auth route.
func PubPOST(path string, h echo.HandlerFunc) {
	server.pub.POST(path, h)
}

func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}

// zapLogger logs each request through the global zap logger.
func zapLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		req := c.Request()
		res := c.Response()
		zap.L().Debug("http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", res.Status),
			zap.String("remote_ip", c.RealIP()))
		return err
	}
}
