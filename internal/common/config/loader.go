package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return build(v)
}

func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars resolves ${VAR} references in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills values the dashboard's deployment passes through
// its own variable names.
func overrideEmptyConfig(cfg *Config) {
	smtp := &cfg.Mail.SMTP
	if smtp.Host == "" {
		smtp.Host = os.Getenv("SMTP_HOST")
	}
	if smtp.Port == 0 {
		if val := os.Getenv("SMTP_PORT"); val != "" {
			if port, err := strconv.Atoi(val); err == nil {
				smtp.Port = port
			}
		}
	}
	if val := os.Getenv("SMTP_TLS"); val != "" {
		if tls, err := strconv.ParseBool(val); err == nil {
			smtp.UseTLS = tls
		}
	}
	if smtp.Username == "" {
		smtp.Username = os.Getenv("SMTP_USER")
	}
	if smtp.Password == "" {
		smtp.Password = os.Getenv("SMTP_PASSWORD")
	}
	if cfg.Mail.FromEmail == "" {
		if val := os.Getenv("SMTP_FROM"); val != "" {
			cfg.Mail.FromEmail = val
		} else {
			cfg.Mail.FromEmail = smtp.Username
		}
	}

	if cfg.Mail.Resend.APIKey == "" {
		cfg.Mail.Resend.APIKey = os.Getenv("RESEND_API_KEY")
	}
	if cfg.Mail.Mailgun.APIKey == "" {
		cfg.Mail.Mailgun.APIKey = os.Getenv("MAILGUN_API_KEY")
	}
	if cfg.Mail.Mailgun.Domain == "" {
		cfg.Mail.Mailgun.Domain = os.Getenv("MAILGUN_DOMAIN")
	}

	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "document-expiry-notifier"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 330000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 1
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 330000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "require"
	}
	if cfg.Database.Postgres.QueryTimeout == 0 {
		cfg.Database.Postgres.QueryTimeout = 10000
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "eu-north-1"
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = ProviderSMTP
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "AviSafe"
	}
	if cfg.Mail.Timeout == 0 {
		cfg.Mail.Timeout = 30000
	}

	if cfg.Sweep.Timezone == "" {
		cfg.Sweep.Timezone = "Europe/Oslo"
	}
	if cfg.Sweep.Locale == "" {
		cfg.Sweep.Locale = "nb-NO"
	}
	if cfg.Sweep.Category == "" {
		cfg.Sweep.Category = "document_expiry"
	}
	if cfg.Sweep.TemplateType == "" {
		cfg.Sweep.TemplateType = "document_reminder"
	}
	if cfg.Sweep.Concurrency <= 0 {
		cfg.Sweep.Concurrency = 4
	}
	if cfg.Sweep.Timeout == 0 {
		cfg.Sweep.Timeout = 300000
	}
	if cfg.Sweep.Dedupe.TTLHours == 0 {
		cfg.Sweep.Dedupe.TTLHours = 72
	}

	if cfg.Report.Elasticsearch.Index == "" {
		cfg.Report.Elasticsearch.Index = "document-expiry-sweeps"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.Tracing.SampleRatio == 0 {
		cfg.Observability.Tracing.SampleRatio = 1
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 1
		}
		if worker.Timeout == 0 {
			worker.Timeout = cfg.Camunda.Timeout
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig only checks what the process needs to start. Mail settings
// are checked per sweep by MailConfig.Validate.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Sweep.Dedupe.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when sweep.dedupe is enabled")
	}
	if cfg.Report.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when report.elasticsearch is enabled")
	}
	if cfg.Report.SNS.Enabled && cfg.Report.SNS.TopicARN == "" {
		return fmt.Errorf("report.sns.topic_arn is required when report.sns is enabled")
	}

	if _, err := time.LoadLocation(cfg.Sweep.Timezone); err != nil {
		return fmt.Errorf("sweep.timezone %q: %w", cfg.Sweep.Timezone, err)
	}

	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: cfg.Camunda.MaxJobsActive,
		Timeout:       cfg.Camunda.Timeout,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
