package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stockpiled/stockpile/internal/domain"
	"github.com/stockpiled/stockpile/internal/webserver"
	"github.com/stockpiled/stockpile/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type registerPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"omitempty,max=100"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string          `json:"token"`
	User  *domain.SysUser `json:"user"`
}

// registerAuthRoutes registers the public auth endpoints
func registerAuthRoutes() {
	webserver.PubPOST("/register", registerUser)
	webserver.PubPOST("/login", loginUser)
}

func issueToken(c echo.Context, user *domain.SysUser) (string, error) {
	ttl := webserver.GetApp(c).GetSettingsInt64Value("auth", "token_ttl_hours")
	if ttl <= 0 {
		ttl = 24
	}
	claims := jwt.MapClaims{
		"uid":   fmt.Sprintf("%d", user.ID),
		"email": user.Email,
		"iat":   jwt.NewNumericDate(time.Now()),
		"exp":   jwt.NewNumericDate(time.Now().Add(time.Duration(ttl) * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(webserver.JwtSecret()))
}

func registerUser(c echo.Context) error {
	var payload registerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse registration", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if payload.Username == "" {
		payload.Username = strings.SplitN(payload.Email, "@", 2)[0]
	}

	var exists int64
	webserver.GetDB(c).Model(&domain.SysUser{}).Where("email = ?", payload.Email).Count(&exists)
	if exists > 0 {
		return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email is already registered", nil)
	}

	hashed, err := common.HashPassword(payload.Password)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to hash password", nil)
	}

	user := domain.SysUser{
		ID:        common.UUIDint64(),
		Email:     payload.Email,
		Username:  payload.Username,
		Password:  hashed,
		Level:     "user",
		Status:    common.ENABLED,
		LastLogin: time.Now(),
	}
	if err := webserver.GetDB(c).Create(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create account", err.Error())
	}

	token, err := issueToken(c, &user)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", nil)
	}

	addAuditLog(c, user.ID, user.Username, "register", "account created")
	zap.L().Info("account registered", zap.String("email", user.Email))
	return ok(c, tokenResponse{Token: token, User: &user})
}

func loginUser(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	var user domain.SysUser
	err := webserver.GetDB(c).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query account", err.Error())
	}

	if !strings.EqualFold(user.Status, common.ENABLED) {
		return fail(c, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled", nil)
	}
	if !common.CheckPassword(user.Password, payload.Password) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}

	webserver.GetDB(c).Model(&domain.SysUser{}).
		Where("id = ?", user.ID).
		Update("last_login", time.Now())

	token, err := issueToken(c, &user)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", nil)
	}

	addAuditLog(c, user.ID, user.Username, "login", "signed in")
	return ok(c, tokenResponse{Token: token, User: &user})
}
