package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用配置（viper 加载，环境变量 POWER_MONITOR_ 前缀覆盖）
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Poller    PollerConfig    `mapstructure:"poller"`
	Email     EmailConfig     `mapstructure:"email"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path 仅 sqlite 使用
	Path string `mapstructure:"path"`
}

// DSN 拼接数据库连接串
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		if c.Path == "" {
			return "file::memory:?cache=shared"
		}
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProviderConfig 单个上游电网数据源配置
type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type ProvidersConfig struct {
	NationalGrid      ProviderConfig `mapstructure:"national_grid"`
	NIENetworks       ProviderConfig `mapstructure:"nie_networks"`
	NorthernPowergrid ProviderConfig `mapstructure:"northern_powergrid"`
	SPEnergy          ProviderConfig `mapstructure:"sp_energy"`
	SSEN              ProviderConfig `mapstructure:"ssen"`
	UKPowerNetworks   ProviderConfig `mapstructure:"uk_power_networks"`
}

type PollerConfig struct {
	// Interval 轮询间隔；CycleBudget 单个周期的硬性时间预算
	Interval    time.Duration `mapstructure:"interval" validate:"required"`
	CycleBudget time.Duration `mapstructure:"cycle_budget" validate:"required"`
	// FetchRPS 单个数据源的请求速率上限
	FetchRPS float64 `mapstructure:"fetch_rps"`
}

type EmailConfig struct {
	// Provider: ses 或 log（本地调试）
	Provider string `mapstructure:"provider" validate:"oneof=ses log"`
	Sender   string `mapstructure:"sender" validate:"required"`
	Region   string `mapstructure:"region"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load 加载配置：configs/config.yaml + 环境变量覆盖
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("POWER_MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺失时允许纯默认值 + 环境变量运行
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "power_monitor.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "require")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("poller.interval", 5*time.Minute)
	v.SetDefault("poller.cycle_budget", 4*time.Minute)
	v.SetDefault("poller.fetch_rps", 2.0)

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.sender", "alerts@power-monitor.local")
	v.SetDefault("email.region", "eu-west-2")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("providers.national_grid.enabled", true)
	v.SetDefault("providers.national_grid.base_url", "https://connecteddata.nationalgrid.co.uk/api/3/action/datastore_search")
	v.SetDefault("providers.nie_networks.enabled", true)
	v.SetDefault("providers.nie_networks.base_url", "https://powercheck.nienetworks.co.uk/NIEPowerCheckerWebAPI/api/faults")
	v.SetDefault("providers.northern_powergrid.enabled", true)
	v.SetDefault("providers.northern_powergrid.base_url", "https://power.northernpowergrid.com/Powercut_API/rest/powercuts/getall")
	v.SetDefault("providers.sp_energy.enabled", true)
	v.SetDefault("providers.sp_energy.base_url", "https://spenergynetworks.opendatasoft.com/api/explore/v2.1/catalog/datasets/distribution-network-live-outages/records")
	v.SetDefault("providers.ssen.enabled", true)
	v.SetDefault("providers.ssen.base_url", "https://ssen-powertrack-api.opcld.com/gridiview/reporter/info/livefaults")
	v.SetDefault("providers.uk_power_networks.enabled", true)
	v.SetDefault("providers.uk_power_networks.base_url", "https://ukpowernetworks.opendatasoft.com/api/explore/v2.1/catalog/datasets/ukpn-live-faults/records")
}
