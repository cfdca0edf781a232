package documentexpirysweep

import (
	"fmt"
	"time"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	MaxRetries    int
	Timezone      *time.Location
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.Timezone == nil {
		return fmt.Errorf("timezone is required")
	}
	return nil
}

func createConfigFromAppConfig(appCfg *config.Config, loc *time.Location) *Config {
	wcfg := config.GetWorkerConfig(appCfg, TaskType)
	return &Config{
		Enabled:       wcfg.Enabled,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
		MaxRetries:    wcfg.MaxRetries,
		Timezone:      loc,
	}
}
