package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string          `mapstructure:"host"`
	Port           int             `mapstructure:"port"`
	Mode           string          `mapstructure:"mode"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig applies when Redis is available. Zero disables a window.
type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	PublicPerMinute int  `mapstructure:"public_per_minute"`
	UserPerMinute   int  `mapstructure:"user_per_minute"`
	UserPerHour     int  `mapstructure:"user_per_hour"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type CookieConfig struct {
	AccessTokenName string `mapstructure:"access_token_name"`
}

type AuthConfig struct {
	JWT    JWTConfig    `mapstructure:"jwt"`
	Cookie CookieConfig `mapstructure:"cookie"`
	// RBACModelPath points at a casbin model file. Empty uses the built-in admin RBAC model.
	RBACModelPath string `mapstructure:"rbac_model_path"`
	// RBACReloadSeconds reloads role grants from the database. Zero disables it.
	RBACReloadSeconds int `mapstructure:"rbac_reload_seconds"`
}

func (a AuthConfig) RBACReloadInterval() time.Duration {
	return time.Duration(a.RBACReloadSeconds) * time.Second
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Cache drivers for resolved entitlement policies.
const (
	CacheDriverNone   = "none"
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// UsageTableConfig maps a limit name onto the table whose rows are counted per owner.
type UsageTableConfig struct {
	Table       string `mapstructure:"table"`
	OwnerColumn string `mapstructure:"owner_column"`
	// SoftDelete excludes rows whose deleted_at column is set.
	SoftDelete bool `mapstructure:"soft_delete"`
}

type EntitlementConfig struct {
	CacheDriver       string `mapstructure:"cache_driver"`
	CacheTTLSeconds   int    `mapstructure:"cache_ttl_seconds"`
	NegativeTTLSecond int    `mapstructure:"negative_ttl_seconds"`
	// PublicPages and PublicFeatures stay reachable for users without an active subscription.
	PublicPages    []string                    `mapstructure:"public_pages"`
	PublicFeatures []string                    `mapstructure:"public_features"`
	FieldCatalog   map[string][]string         `mapstructure:"field_catalog"`
	UsageTables    map[string]UsageTableConfig `mapstructure:"usage_tables"`
}

func (e *EntitlementConfig) CacheTTL() time.Duration {
	if e.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.CacheTTLSeconds) * time.Second
}

func (e *EntitlementConfig) NegativeTTL() time.Duration {
	if e.NegativeTTLSecond <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.NegativeTTLSecond) * time.Second
}
