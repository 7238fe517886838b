package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Registry RegistryConfig
	TenantDB TenantDBConfig
	WhatsApp WhatsAppConfig
	Notify   NotifyConfig
	Redis    RedisConfig
	Schedule ScheduleConfig
}

// RegistryConfig points at the provisioning database holding the tenant
// list. An empty host means the registry shares the control-plane database.
type RegistryConfig struct {
	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

func (c RegistryConfig) Enabled() bool {
	return strings.TrimSpace(c.DBHost) != ""
}

// TenantDBConfig carries the defaults applied to every tenant connection.
type TenantDBConfig struct {
	Driver       string
	Port         string
	Params       string
	DialTimeout  time.Duration
	QueryTimeout time.Duration
}

type WhatsAppConfig struct {
	APIURL             string
	AccessToken        string
	PhoneNumberID      string
	BusinessAccountID  string
	Language           string
	DefaultCountryCode string
	Timeout            time.Duration
	Retries            int
	RetryWait          time.Duration
	SendInterval       time.Duration
}

type NotifyConfig struct {
	CompanyWindow          string
	GlobalWindow           string
	Timezone               string
	DescriptionBudget      int
	Concurrency            int
	GlobalSupportSubdomain string
	GlobalTemplate         string
	TestTemplate           string
	SystemURL              string
	TenantLockTTL          time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type ScheduleConfig struct {
	Enabled        bool
	CompanyEvery   time.Duration
	GlobalEvery    time.Duration
	EnabledJobs    []string
	CompanyTimeout time.Duration
	GlobalTimeout  time.Duration
	TickInterval   time.Duration
	RunOnStart     bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "invoicenotify"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "invoicenotify"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),

		Registry: RegistryConfig{
			DBType:     getenv("REGISTRY_DATABASE_TYPE", "mysql"),
			DBHost:     strings.TrimSpace(os.Getenv("REGISTRY_DATABASE_HOST")),
			DBPort:     getenv("REGISTRY_DATABASE_PORT", "3306"),
			DBName:     getenv("REGISTRY_DATABASE_NAME", ""),
			DBUser:     getenv("REGISTRY_DATABASE_USER", ""),
			DBPassword: getenv("REGISTRY_DATABASE_PASSWORD", ""),
			DBSSLMode:  getenv("REGISTRY_DATABASE_SSLMODE", "disable"),
		},
		TenantDB: TenantDBConfig{
			Driver:       strings.ToLower(getenv("TENANT_DATABASE_DRIVER", "mysql")),
			Port:         getenv("TENANT_DATABASE_PORT", "3306"),
			Params:       getenv("TENANT_DATABASE_PARAMS", "charset=utf8mb4&parseTime=True"),
			DialTimeout:  getenvDuration("TENANT_DATABASE_DIAL_TIMEOUT", 10*time.Second),
			QueryTimeout: getenvDuration("TENANT_QUERY_TIMEOUT", 30*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:             strings.TrimRight(getenv("WHATSAPP_API_URL", "https://graph.facebook.com/v18.0"), "/"),
			AccessToken:        strings.TrimSpace(getenv("WHATSAPP_ACCESS_TOKEN", "")),
			PhoneNumberID:      strings.TrimSpace(getenv("WHATSAPP_PHONE_NUMBER_ID", "")),
			BusinessAccountID:  strings.TrimSpace(getenv("WHATSAPP_BUSINESS_ACCOUNT_ID", "")),
			Language:           getenv("WHATSAPP_TEMPLATE_LANGUAGE", "es"),
			DefaultCountryCode: getenv("WHATSAPP_DEFAULT_COUNTRY_CODE", "57"),
			Timeout:            getenvDuration("WHATSAPP_TIMEOUT", 30*time.Second),
			Retries:            int(getenvInt64("WHATSAPP_RETRIES", 2)),
			RetryWait:          getenvDuration("WHATSAPP_RETRY_WAIT", time.Second),
			SendInterval:       getenvDuration("WHATSAPP_SEND_INTERVAL", 300*time.Millisecond),
		},
		Notify: NotifyConfig{
			CompanyWindow:          strings.ToLower(getenv("NOTIFY_COMPANY_WINDOW", "week")),
			GlobalWindow:           strings.ToLower(getenv("NOTIFY_GLOBAL_WINDOW", "day")),
			Timezone:               getenv("NOTIFY_TIMEZONE", "UTC"),
			DescriptionBudget:      int(getenvInt64("NOTIFY_DESCRIPTION_BUDGET", 50)),
			Concurrency:            int(getenvInt64("NOTIFY_CONCURRENCY", 1)),
			GlobalSupportSubdomain: getenv("NOTIFY_GLOBAL_SUBDOMAIN", "global_support"),
			GlobalTemplate:         getenv("NOTIFY_GLOBAL_TEMPLATE", "alerta_soporte_facturas_global"),
			TestTemplate:           getenv("NOTIFY_TEST_TEMPLATE", "hello_world"),
			SystemURL:              getenv("NOTIFY_SYSTEM_URL", "https://admin.sistemat.com"),
			TenantLockTTL:          getenvDuration("NOTIFY_TENANT_LOCK_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getenvBool("REDIS_ENABLED", false),
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Schedule: ScheduleConfig{
			Enabled:        getenvBool("SCHEDULER_ENABLED", true),
			CompanyEvery:   getenvDuration("SCHEDULER_COMPANY_INTERVAL", time.Hour),
			GlobalEvery:    getenvDuration("SCHEDULER_GLOBAL_INTERVAL", 24*time.Hour),
			EnabledJobs:    getenvList("SCHEDULER_JOBS"),
			CompanyTimeout: getenvDuration("SCHEDULER_COMPANY_TIMEOUT", 30*time.Minute),
			GlobalTimeout:  getenvDuration("SCHEDULER_GLOBAL_TIMEOUT", 10*time.Minute),
			TickInterval:   getenvDuration("SCHEDULER_TICK_INTERVAL", time.Minute),
			RunOnStart:     getenvBool("SCHEDULER_RUN_ON_START", false),
		},
	}

	return cfg
}

// Location resolves the notification timezone, falling back to UTC.
func (c NotifyConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[config] unknown NOTIFY_TIMEZONE %q, using UTC", name)
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %d", key, value, def)
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %s", key, value, def)
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
