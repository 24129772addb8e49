package app

import (
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/stockpiled/stockpile/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigManager caches sys_config rows and hands out typed values.
type ConfigManager struct {
	db    *gorm.DB
	mu    sync.RWMutex
	cache map[string]string // "type.name" -> value
}

func NewConfigManager(db *gorm.DB) *ConfigManager {
	return &ConfigManager{
		db:    db,
		cache: make(map[string]string),
	}
}

// Reload replaces the cache with the current table contents.
func (m *ConfigManager) Reload() {
	var rows []domain.SysConfig
	if err := m.db.Find(&rows).Error; err != nil {
		zap.L().Error("failed to load sys_config", zap.Error(err))
		return
	}
	next := make(map[string]string, len(rows))
	for _, row := range rows {
		next[row.Type+"."+row.Name] = row.Value
	}
	m.mu.Lock()
	m.cache = next
	m.mu.Unlock()
}

func (m *ConfigManager) get(category, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache[category+"."+key]
}

func (m *ConfigManager) GetString(category, key string) string {
	return m.get(category, key)
}

func (m *ConfigManager) GetInt64(category, key string) int64 {
	return cast.ToInt64(m.get(category, key))
}

func (m *ConfigManager) GetBool(category, key string) bool {
	return cast.ToBool(m.get(category, key))
}

// settingEntry is the shape accepted by Save for each settings item.
type settingEntry struct {
	Type  string `mapstructure:"type"`
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

// Save persists a batch of settings delivered as loosely typed maps
// and refreshes the cache.
func (m *ConfigManager) Save(settings map[string]interface{}) error {
	for key, raw := range settings {
		var entry settingEntry
		switch v := raw.(type) {
		case map[string]interface{}:
			if err := mapstructure.Decode(v, &entry); err != nil {
				return errors.Wrapf(err, "invalid settings entry %s", key)
			}
		default:
			entry.Value = cast.ToString(raw)
		}
		if entry.Type == "" || entry.Name == "" {
			parts := splitKey(key)
			if parts == nil {
				return errors.Errorf("invalid settings key %s", key)
			}
			entry.Type, entry.Name = parts[0], parts[1]
		}

		err := m.db.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", entry.Type, entry.Name).
			Update("value", entry.Value).Error
		if err != nil {
			return errors.Wrapf(err, "failed to save setting %s.%s", entry.Type, entry.Name)
		}
		m.db.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", entry.Type, entry.Name).
			Update("updated_at", time.Now())
	}
	m.Reload()
	return nil
}

func splitKey(key string) []string {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return []string{key[:i], key[i+1:]}
		}
	}
	return nil
}
