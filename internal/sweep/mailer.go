package sweep

import (
	"context"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/mail"
)

// MailDispatcherFactory validates the mail settings on every run and builds
// the configured transport. Missing settings fail the run before anything is
// loaded or sent.
func MailDispatcherFactory(cfg config.MailConfig, awsRegion string, log logger.Logger, opts ...mail.Option) DispatcherFactory {
	return func(ctx context.Context) (Dispatcher, error) {
		if err := cfg.Validate(); err != nil {
			return nil, errors.NewMailConfigMissingError(err.Error())
		}

		transport, err := mail.NewTransport(ctx, cfg, awsRegion)
		if err != nil {
			return nil, errors.NewMailConfigMissingError(err.Error())
		}

		runOpts := append([]mail.Option{mail.WithTimeout(config.GetDuration(cfg.Timeout))}, opts...)
		return mail.NewDispatcher(transport, cfg.FromEmail, cfg.FromName, log, runOpts...), nil
	}
}
