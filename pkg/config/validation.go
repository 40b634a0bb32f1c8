package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if cfg.Auth.Token.Enabled {
		if err := cfg.Auth.Token.Validate(); err != nil {
			return fmt.Errorf("auth.token: %w", err)
		}
	}
	if cfg.Metrics.Enabled && cfg.ControlPlane.Enabled &&
		cfg.Metrics.Port == cfg.ControlPlane.Port {
		return fmt.Errorf("metrics and controlplane cannot share port %d", cfg.Metrics.Port)
	}
	return nil
}

// formatValidationErrors joins field errors into one message that names the
// field and the failed tag.
func formatValidationErrors(verrs validator.ValidationErrors) error {
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			errs = append(errs, fmt.Errorf("%s: failed %s=%s (value %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			errs = append(errs, fmt.Errorf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.Join(errs...)
}
