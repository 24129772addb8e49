package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stockpiled/stockpile/internal/domain"
	"github.com/stockpiled/stockpile/internal/webserver"
	"github.com/stockpiled/stockpile/pkg/common"
)

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, apiError{Code: code, Message: message, Detail: detail})
}

func handleValidationError(c echo.Context, err error) error {
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", err.Error())
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// currentUserID extracts the authenticated user id from the JWT claims.
// The uid claim is carried as a string so snowflake ids survive the JSON
// float64 round trip.
func currentUserID(c echo.Context) int64 {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return 0
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0
	}
	uid, _ := claims["uid"].(string)
	id, _ := strconv.ParseInt(uid, 10, 64)
	return id
}

func addAuditLog(c echo.Context, userID int64, username, action, desc string) {
	webserver.GetDB(c).Create(&domain.SysAuditLog{
		ID:        common.UUIDint64(),
		UserID:    userID,
		Username:  username,
		OptIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	})
}
