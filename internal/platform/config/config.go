package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultValidityDays      = 365
	defaultRenderWidth       = 804
	defaultRenderQuality     = 100
	defaultRenderTimeout     = 30 * time.Second
	defaultMaxReportedErrors = 10
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Badge      BadgeConfig      `yaml:"badge"`
	Render     RenderConfig     `yaml:"render"`
	Import     ImportConfig     `yaml:"import"`
	Validation ValidationConfig `yaml:"validation"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// LoggingConfig はロガーの設定です。
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ServiceName string `yaml:"service_name"`
}

// BadgeConfig はカード発行に関する設定です。
type BadgeConfig struct {
	ValidityDays int `yaml:"validity_days"`
}

// RenderConfig はカード画像生成に関する設定です。
type RenderConfig struct {
	Format            string        `yaml:"format"`
	Organization      string        `yaml:"organization"`
	TemplatePath      string        `yaml:"template_path"`
	BackgroundPath    string        `yaml:"background_path"`
	RasterizerPath    string        `yaml:"rasterizer_path"`
	OutputDir         string        `yaml:"output_dir"`
	Width             int           `yaml:"width"`
	Height            int           `yaml:"height"`
	Quality           int           `yaml:"quality"`
	MaxReportedErrors int           `yaml:"max_reported_errors"`
	Timeout           time.Duration `yaml:"-"`
	TimeoutRaw        string        `yaml:"timeout"`
}

// ImportConfig は一括取り込みの設定です。
type ImportConfig struct {
	OnDuplicate string `yaml:"on_duplicate"`
}

// ValidationConfig は入力検証の設定です。
type ValidationConfig struct {
	StrictNationalID bool `yaml:"strict_national_id"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	c.Logging.normalize()

	if c.Badge.ValidityDays < 0 {
		return fmt.Errorf("config: badge.validity_days must not be negative")
	}
	if c.Badge.ValidityDays == 0 {
		c.Badge.ValidityDays = defaultValidityDays
	}

	if err := c.Render.validateAndNormalize(); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.Import.OnDuplicate)) {
	case "":
		c.Import.OnDuplicate = "ask"
	case "ask", "update", "skip":
		c.Import.OnDuplicate = strings.ToLower(strings.TrimSpace(c.Import.OnDuplicate))
	default:
		return fmt.Errorf("config: import.on_duplicate must be one of ask, update, skip")
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (l *LoggingConfig) normalize() {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = "json"
	}
	if l.ServiceName == "" {
		l.ServiceName = "carnet-craft"
	}
}

func (r *RenderConfig) validateAndNormalize() error {
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	switch r.Format {
	case "":
		r.Format = "png"
	case "png", "pdf":
	default:
		return fmt.Errorf("config: render.format must be png or pdf")
	}

	if r.Format == "png" && r.TemplatePath == "" {
		return fmt.Errorf("config: render.template_path must be set for png output")
	}
	if r.Organization == "" {
		r.Organization = "FUNDALANAVIAL"
	}
	if r.RasterizerPath == "" {
		r.RasterizerPath = "wkhtmltoimage"
	}
	if r.OutputDir == "" {
		r.OutputDir = "."
	}
	if r.Width <= 0 {
		r.Width = defaultRenderWidth
	}
	if r.Height < 0 {
		return fmt.Errorf("config: render.height must not be negative")
	}
	if r.Quality <= 0 || r.Quality > 100 {
		r.Quality = defaultRenderQuality
	}
	if r.MaxReportedErrors <= 0 {
		r.MaxReportedErrors = defaultMaxReportedErrors
	}

	timeout, err := parseDurationAllowEmpty(r.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: render.timeout: %w", err)
	}
	if timeout == 0 {
		timeout = defaultRenderTimeout
	}
	r.Timeout = timeout

	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
