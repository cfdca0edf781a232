package config

import (
	"fmt"
	"strings"
)

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	AWS           AWSConfig               `mapstructure:"aws"`
	Mail          MailConfig              `mapstructure:"mail"`
	Sweep         SweepConfig             `mapstructure:"sweep"`
	Report        ReportConfig            `mapstructure:"report"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // milliseconds
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	QueryTimeout   int    `mapstructure:"query_timeout"` // milliseconds
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// RedisConfig is optional. An empty address disables the notification ledger
// and drops Redis from the readiness checks.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

const (
	ProviderSMTP    = "smtp"
	ProviderSES     = "ses"
	ProviderMailgun = "mailgun"
	ProviderResend  = "resend"
)

type MailConfig struct {
	Provider  string        `mapstructure:"provider"`
	FromEmail string        `mapstructure:"from_email"`
	FromName  string        `mapstructure:"from_name"`
	SMTP      SMTPConfig    `mapstructure:"smtp"`
	Mailgun   MailgunConfig `mapstructure:"mailgun"`
	Resend    ResendConfig  `mapstructure:"resend"`
	Timeout   int           `mapstructure:"timeout"` // milliseconds, per message
}

// SMTPConfig holds the relay settings. UseTLS selects implicit TLS; without it
// the connection is upgraded with STARTTLS when the server offers it.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

type MailgunConfig struct {
	Domain  string `mapstructure:"domain"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type ResendConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Validate checks that the selected provider has everything it needs to send.
// It runs at the start of every sweep rather than at startup so a broken mail
// setup fails the run and not the process.
func (m MailConfig) Validate() error {
	var missing []string
	if m.FromEmail == "" {
		missing = append(missing, "mail.from_email")
	}

	switch m.Provider {
	case ProviderSMTP, "":
		if m.SMTP.Host == "" {
			missing = append(missing, "mail.smtp.host")
		}
		if m.SMTP.Port == 0 {
			missing = append(missing, "mail.smtp.port")
		}
		if m.SMTP.Username == "" {
			missing = append(missing, "mail.smtp.username")
		}
		if m.SMTP.Password == "" {
			missing = append(missing, "mail.smtp.password")
		}
	case ProviderSES:
	case ProviderMailgun:
		if m.Mailgun.Domain == "" {
			missing = append(missing, "mail.mailgun.domain")
		}
		if m.Mailgun.APIKey == "" {
			missing = append(missing, "mail.mailgun.api_key")
		}
	case ProviderResend:
		if m.Resend.APIKey == "" {
			missing = append(missing, "mail.resend.api_key")
		}
	default:
		return fmt.Errorf("unsupported mail provider %q", m.Provider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

type SweepConfig struct {
	Schedule     string      `mapstructure:"schedule"` // cron spec, empty disables the in-process schedule
	Timezone     string      `mapstructure:"timezone"`
	Locale       string      `mapstructure:"locale"`
	Category     string      `mapstructure:"category"`
	TemplateType string      `mapstructure:"template_type"`
	Concurrency  int         `mapstructure:"concurrency"`
	Timeout      int         `mapstructure:"timeout"` // milliseconds
	Dedupe       DedupConfig `mapstructure:"dedupe"`
}

type DedupConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	TTLHours int  `mapstructure:"ttl_hours"`
}

type ReportConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	Elasticsearch struct {
		Enabled bool   `mapstructure:"enabled"`
		Index   string `mapstructure:"index"`
	} `mapstructure:"elasticsearch"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Tracing struct {
		Enabled        bool    `mapstructure:"enabled"`
		JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
		SampleRatio    float64 `mapstructure:"sample_ratio"`
	} `mapstructure:"tracing"`
}
