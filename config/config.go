package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	JwtSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System   SysConfig `yaml:"system" json:"system"`
	Web      WebConfig `yaml:"web" json:"web"`
	Database DBConfig  `yaml:"database" json:"database"`
	Logger   LogConfig `yaml:"logger" json:"logger"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "stockpile",
		Location: "Europe/Paris",
		Workdir:  "/var/stockpile",
		Debug:    true,
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 1880,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "stockpile",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/stockpile/stockpile.log",
	},
}

func setEnvValue(name string, f func(v string)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v)
	}
}

func setEnvInt64Value(name string, f func(v int64)) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	var i int64
	if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
		f(i)
	}
}

// LoadConfig loads the yaml configuration file and applies
// STOCKPILE_* environment overrides on top of it.
func LoadConfig(cfile string) *AppConfig {
	defaults := *DefaultAppConfig
	cfg := &defaults
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			cfg = new(AppConfig)
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(err)
			}
		}
	}
	if cfg.System.Workdir == "" {
		cfg.System.Workdir = DefaultAppConfig.System.Workdir
	}

	setEnvValue("STOCKPILE_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("STOCKPILE_SYSTEM_DEBUG", func(v string) { cfg.System.Debug = v == "true" || v == "1" })
	setEnvValue("STOCKPILE_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvInt64Value("STOCKPILE_WEB_PORT", func(v int64) { cfg.Web.Port = int(v) })
	setEnvValue("STOCKPILE_WEB_JWT_SECRET", func(v string) { cfg.Web.JwtSecret = v })
	setEnvValue("STOCKPILE_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("STOCKPILE_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvInt64Value("STOCKPILE_DB_PORT", func(v int64) { cfg.Database.Port = int(v) })
	setEnvValue("STOCKPILE_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("STOCKPILE_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("STOCKPILE_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("STOCKPILE_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })

	if cfg.Logger.Filename == "" {
		cfg.Logger.Filename = filepath.Join(cfg.System.Workdir, "stockpile.log")
	}
	return cfg
}
