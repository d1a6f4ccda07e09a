package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode         string  `yaml:"mode"`
	Symbol       string  `yaml:"symbol"`
	Interval     string  `yaml:"interval"`
	OrderSize    float64 `yaml:"order_size"`
	Timezone     string  `yaml:"timezone"`
	DayStartHour int     `yaml:"day_start_hour"`

	Risk struct {
		HaltRatio float64 `yaml:"halt_ratio"`
	} `yaml:"risk"`

	Signal struct {
		Provider         string   `yaml:"provider"`
		LookbackDays     int      `yaml:"lookback_days"`
		ModelsDir        string   `yaml:"models_dir"`
		FeatureColumns   []string `yaml:"feature_columns"`
		ReflectionWindow int      `yaml:"reflection_window"`
	} `yaml:"signal"`

	LLM struct {
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`

	News struct {
		Enabled     bool     `yaml:"enabled"`
		Feeds       []string `yaml:"feeds"`
		MaxArticles int      `yaml:"max_articles"`
		WindowHours int      `yaml:"window_hours"`
	} `yaml:"news"`

	Indicators struct {
		SMAShort  int     `yaml:"sma_short"`
		SMALong   int     `yaml:"sma_long"`
		RSIPeriod int     `yaml:"rsi_period"`
		BBWindow  int     `yaml:"bb_window"`
		BBStdDev  float64 `yaml:"bb_stddev"`
		MACDFast  int     `yaml:"macd_fast"`
		MACDSlow  int     `yaml:"macd_slow"`
		MACDSig   int     `yaml:"macd_signal"`
	} `yaml:"indicators"`

	Telemetry struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"telemetry"`

	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if c.OrderSize <= 0 {
		return fmt.Errorf("order_size must be positive, got %v", c.OrderSize)
	}
	switch c.Signal.Provider {
	case "ENSEMBLE", "OPENAI", "CLAUDE", "NOOP":
	default:
		return fmt.Errorf("signal.provider must be 'ENSEMBLE', 'OPENAI', 'CLAUDE', or 'NOOP', got '%s'", c.Signal.Provider)
	}
	if c.Risk.HaltRatio >= 0 {
		return fmt.Errorf("risk.halt_ratio must be negative, got %v", c.Risk.HaltRatio)
	}
	if c.DayStartHour < 0 || c.DayStartHour > 23 {
		return fmt.Errorf("day_start_hour must be 0-23, got %d", c.DayStartHour)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	// Zero is a valid day_start_hour, so its default is set before decoding
	// and only overridden when the key is present.
	c.DayStartHour = 6
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Symbol == "" {
		c.Symbol = "BTC_JPY"
	}
	if c.Interval == "" {
		c.Interval = "1hour"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Tokyo"
	}
	if c.Risk.HaltRatio == 0 {
		c.Risk.HaltRatio = -0.20
	}
	if c.Signal.Provider == "" {
		c.Signal.Provider = "NOOP"
	}
	if c.Signal.LookbackDays == 0 {
		c.Signal.LookbackDays = 3
	}
	if c.Signal.ModelsDir == "" {
		c.Signal.ModelsDir = "models"
	}
	if len(c.Signal.FeatureColumns) == 0 {
		c.Signal.FeatureColumns = []string{"return", "return_std_5", "sharpe_5"}
	}
	if c.Signal.ReflectionWindow == 0 {
		c.Signal.ReflectionWindow = 6
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 10
	}
	if c.News.WindowHours == 0 {
		c.News.WindowHours = 24
	}
	if c.Indicators.SMAShort == 0 {
		c.Indicators.SMAShort = 20
	}
	if c.Indicators.SMALong == 0 {
		c.Indicators.SMALong = 50
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.BBWindow == 0 {
		c.Indicators.BBWindow = 20
	}
	if c.Indicators.BBStdDev == 0 {
		c.Indicators.BBStdDev = 2.0
	}
	if c.Indicators.MACDFast == 0 {
		c.Indicators.MACDFast = 12
	}
	if c.Indicators.MACDSlow == 0 {
		c.Indicators.MACDSlow = 26
	}
	if c.Indicators.MACDSig == 0 {
		c.Indicators.MACDSig = 9
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4.1"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Telemetry.Addr == "" {
		c.Telemetry.Addr = ":8089"
	}
	if c.HTTPTimeoutSeconds == 0 {
		c.HTTPTimeoutSeconds = 10
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// Location resolves the configured timezone, falling back to a fixed JST
// offset when the zone database is unavailable.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("JST", 9*3600)
}
