package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/logger"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/notify"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/pipeline"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/schedule"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	EnvFiles []string        `toml:"env_files" mapstructure:"env_files"`
	Daemon   DaemonConfig    `toml:"daemon" mapstructure:"daemon"`
	Schedule ScheduleConfig  `toml:"schedule" mapstructure:"schedule"`
	Report   ReportConfig    `toml:"report" mapstructure:"report"`
	Holdings []HoldingConfig `toml:"holdings" mapstructure:"holdings"`
	Notify   NotifyConfig    `toml:"notify" mapstructure:"notify"`
	Log      logger.Config   `toml:"log" mapstructure:"log"`
	Server   ServerConfig    `toml:"server" mapstructure:"server"`
	Metrics  MetricsConfig   `toml:"metrics" mapstructure:"metrics"`
	History  HistoryConfig   `toml:"history" mapstructure:"history"`
}

type DaemonConfig struct {
	PIDFile     string        `toml:"pidfile" mapstructure:"pidfile"`
	StopTimeout time.Duration `toml:"stop_timeout" mapstructure:"stop_timeout"`
}

type ScheduleConfig struct {
	At string `toml:"at" mapstructure:"at"` // "HH:MM", local time
}

type ReportConfig struct {
	LookbackDays int `toml:"lookback_days" mapstructure:"lookback_days"`
	ForecastDays int `toml:"forecast_days" mapstructure:"forecast_days"`
}

type HoldingConfig struct {
	Code      string  `toml:"code" mapstructure:"code"`
	Name      string  `toml:"name" mapstructure:"name"`
	CostBasis float64 `toml:"cost_basis" mapstructure:"cost_basis"`
	Amount    float64 `toml:"amount" mapstructure:"amount"`
}

// NotifyConfig holds channel credentials. Each field falls back to an
// environment variable so secrets can stay out of the config file:
// SERVERCHAN_KEY, WECHATWORK_WEBHOOK, DINGTALK_WEBHOOK.
type NotifyConfig struct {
	ServerChanKey  string `toml:"serverchan_key" mapstructure:"serverchan_key"`
	WeChatWorkHook string `toml:"wechatwork_webhook" mapstructure:"wechatwork_webhook"`
	DingTalkHook   string `toml:"dingtalk_webhook" mapstructure:"dingtalk_webhook"`
}

type ServerConfig struct {
	Enabled  bool   `toml:"enabled" mapstructure:"enabled"`
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Load reads and validates the TOML config at path. Env files listed in
// env_files are loaded first so channel credentials can come from the
// environment.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}

	for _, f := range fc.EnvFiles {
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("env file %s: %w", f, err)
		}
	}
	if fc.Notify.ServerChanKey == "" {
		fc.Notify.ServerChanKey = os.Getenv("SERVERCHAN_KEY")
	}
	if fc.Notify.WeChatWorkHook == "" {
		fc.Notify.WeChatWorkHook = os.Getenv("WECHATWORK_WEBHOOK")
	}
	if fc.Notify.DingTalkHook == "" {
		fc.Notify.DingTalkHook = os.Getenv("DINGTALK_WEBHOOK")
	}

	fc.applyDefaults()
	if err := fc.validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

func (fc *FileConfig) applyDefaults() {
	if fc.Daemon.PIDFile == "" {
		fc.Daemon.PIDFile = "fundmgr.pid"
	}
	if fc.Daemon.StopTimeout <= 0 {
		fc.Daemon.StopTimeout = 10 * time.Second
	}
	if fc.Schedule.At == "" {
		fc.Schedule.At = "21:40"
	}
	if fc.Report.LookbackDays <= 0 {
		fc.Report.LookbackDays = 30
	}
	if fc.Report.ForecastDays <= 0 {
		fc.Report.ForecastDays = 5
	}
	if fc.Server.Listen == "" {
		fc.Server.Listen = "127.0.0.1:8822"
	}
	if fc.Metrics.Listen == "" {
		fc.Metrics.Listen = "127.0.0.1:9822"
	}
}

func (fc *FileConfig) validate() error {
	if _, err := schedule.ParseClock(fc.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at: %w", err)
	}
	for i, h := range fc.Holdings {
		if h.Code == "" {
			return fmt.Errorf("holdings[%d]: code required", i)
		}
		if h.CostBasis <= 0 {
			return fmt.Errorf("holdings[%d] (%s): cost_basis must be positive", i, h.Code)
		}
		if h.Amount <= 0 {
			return fmt.Errorf("holdings[%d] (%s): amount must be positive", i, h.Code)
		}
	}
	return nil
}

// Clock returns the parsed daily trigger time. Call after Load; the value
// was validated there.
func (fc *FileConfig) Clock() schedule.Clock {
	c, _ := schedule.ParseClock(fc.Schedule.At)
	return c
}

// PipelineHoldings converts the configured holdings for the pipeline.
func (fc *FileConfig) PipelineHoldings() []pipeline.Holding {
	out := make([]pipeline.Holding, 0, len(fc.Holdings))
	for _, h := range fc.Holdings {
		out = append(out, pipeline.Holding{
			Code:      h.Code,
			Name:      h.Name,
			CostBasis: decimal.NewFromFloat(h.CostBasis),
			Amount:    decimal.NewFromFloat(h.Amount),
		})
	}
	return out
}

// Channels builds the configured notification channels. Zero channels is
// valid; the report is computed but not delivered.
func (fc *FileConfig) Channels() []notify.Channel {
	var out []notify.Channel
	if fc.Notify.ServerChanKey != "" {
		out = append(out, notify.NewServerChan(fc.Notify.ServerChanKey))
	}
	if fc.Notify.WeChatWorkHook != "" {
		out = append(out, notify.NewWeChatWork(fc.Notify.WeChatWorkHook))
	}
	if fc.Notify.DingTalkHook != "" {
		out = append(out, notify.NewDingTalk(fc.Notify.DingTalkHook))
	}
	return out
}
