package webserver

import (
	"github.com/labstack/echo/v4"
	"github.com/stockpiled/stockpile/internal/app"
	"gorm.io/gorm"
)

// AppContextKey is the echo context key holding the application.
const AppContextKey = "stockpile_app"

// GetApp returns the application bound to the request.
func GetApp(c echo.Context) *app.Application {
	return c.Get(AppContextKey).(*app.Application)
}

// GetDB returns the request-scoped database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetApp(c).DB()
}
