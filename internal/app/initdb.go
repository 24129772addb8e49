package app

import (
	"errors"
	"strings"
	"time"

	"github.com/stockpiled/stockpile/internal/domain"
	"github.com/stockpiled/stockpile/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *Application) checkSuper() {
	const superEmail = "admin@stockpile.local"
	const defaultPassword = "stockpile"

	hashedPassword, err := common.HashPassword(defaultPassword)
	if err != nil {
		zap.L().Error("failed to hash default password", zap.Error(err))
		return
	}

	var user domain.SysUser
	err = a.gormDB.Where("email = ?", superEmail).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysUser{
			ID:        common.UUIDint64(),
			Email:     superEmail,
			Username:  "administrator",
			Password:  hashedPassword,
			Level:     "super",
			Status:    common.ENABLED,
			Remark:    "super",
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("email", superEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	if strings.EqualFold(user.Status, common.ENABLED) {
		return
	}

	if err := a.gormDB.Model(&domain.SysUser{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"status":     common.ENABLED,
		"updated_at": time.Now(),
	}).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}
	zap.L().Warn("re-enabled default super admin account", zap.String("email", superEmail))
}

// settingSchema describes one sys_config default.
type settingSchema struct {
	Key         string
	Default     string
	Description string
}

var defaultSettings = []settingSchema{
	{Key: "auth.token_ttl_hours", Default: "24", Description: "JWT bearer token lifetime in hours"},
	{Key: "inventory.default_sort", Default: "desc", Description: "Default quantity sort order for product listings"},
	{Key: "system.audit_retention_days", Default: "365", Description: "Days to keep sys_audit_log rows"},
	{Key: "lookup.enabled", Default: "true", Description: "Enable the external food product lookup endpoint"},
}

func (a *Application) checkSettings() {
	for sortid, schema := range defaultSettings {
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid config key format", zap.String("key", schema.Key))
			continue
		}

		category := parts[0]
		name := parts[1]

		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)

		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     common.UUIDint64(),
				Sort:   sortid,
				Type:   category,
				Name:   name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", schema.Key),
				zap.String("default", schema.Default))
		}
	}
}
