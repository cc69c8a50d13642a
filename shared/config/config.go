package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
	HTTPPort int    `yaml:"http_port" validate:"required,min=1,max=65535"`
	// HTTPS enables HSTS. TLS itself is terminated in front of the service.
	HTTPS bool `yaml:"https"`
	// TrustProxy takes client IPs from X-Real-IP / X-Forwarded-For for rate limiting.
	TrustProxy bool `yaml:"trust_proxy"`

	JwtTTL time.Duration `yaml:"jwt_ttl" validate:"required"`

	PageSize       int `yaml:"page_size" validate:"required,min=1"`
	MaxPageSize    int `yaml:"max_page_size" validate:"required,gtefield=PageSize"`
	MaxConvoLength int `yaml:"max_convo_length" validate:"required,min=1"`

	// 0 disables the background consistency sweep.
	RepairInterval time.Duration `yaml:"repair_interval"`

	AllowedOrigins []string  `yaml:"allowed_origins"`
	ViewCache      ViewCache `yaml:"view_cache"`
	TraceExporter  string    `yaml:"trace_exporter" validate:"omitempty,oneof=stdout none"`
}

type ViewCache struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"` // empty means in-memory
	TTL     time.Duration `yaml:"ttl"`
}

type Database struct {
	Driver     string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	Pg         Pg     `yaml:"pg"`
	SqlitePath string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Private struct {
	Database Database `yaml:"database"`
	JwtKey   string   `yaml:"jwt_key" validate:"required"`
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) JwtTTL() time.Duration {
	return c.Public.JwtTTL
}

// DSN builds the driver-specific connection string.
func (d *Database) DSN() string {
	if d.Driver == DriverSqlite {
		return d.SqlitePath
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Pg.Host, d.Pg.Port, d.Pg.User, d.Pg.Password, d.Pg.Dbname)
}

func loadPath(configPath string, output interface{}) error {
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if err := yaml.UnmarshalStrict(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml and private.yaml from configFolder and validates the result.
func Load(configFolder string) (*Config, error) {
	var cfg Config
	if err := loadPath(path.Join(configFolder, "public.yaml"), &cfg.Public); err != nil {
		return nil, err
	}
	if err := loadPath(path.Join(configFolder, "private.yaml"), &cfg.Private); err != nil {
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}
