package app

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stockpiled/stockpile/internal/domain"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@daily", func() {
		retention := a.GetSettingsInt64Value("system", "audit_retention_days")
		if retention <= 0 {
			retention = 365
		}
		result := a.gormDB.
			Where("opt_time < ?", time.Now().Add(-time.Hour*24*time.Duration(retention))).
			Delete(domain.SysAuditLog{})
		if result.Error != nil {
			zap.L().Error("audit log purge failed", zap.Error(result.Error))
		} else if result.RowsAffected > 0 {
			zap.L().Info("purged audit logs", zap.Int64("rows", result.RowsAffected))
		}
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 10m", func() {
		a.configManager.Reload()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}
}
