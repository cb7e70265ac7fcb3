package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/rileyhilliard/srvstats/internal/stats"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML names so messages match the file.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the config for errors and returns a structured error for
// the first problem found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but srvstats only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest srvstats: https://github.com/rileyhilliard/srvstats/releases")
	}

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return errors.New(errors.ErrConfig,
				formatFieldError(fieldErrs[0]),
				"Check that section in your "+ConfigFileName+".")
		}
		return errors.WrapWithCode(err, errors.ErrConfig, "Config failed validation", "")
	}

	if cfg.Interval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Poll interval %s is too short", cfg.Interval),
			fmt.Sprintf("Use at least %s, e.g. 'interval: %s'.", MinInterval, DefaultInterval))
	}

	if cfg.Default != "" {
		if _, ok := cfg.Hosts[cfg.Default]; !ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Default host '%s' isn't defined under hosts", cfg.Default),
				"Add it to 'hosts' or fix the name.")
		}
	}

	for name := range cfg.Hosts {
		if err := validateHostName(name); err != nil {
			return err
		}
	}

	return validateMetrics(cfg.Metrics)
}

// validateHostName checks that a host key is just a name (no special chars).
func validateHostName(name string) error {
	if strings.Contains(name, "@") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host name '%s' looks like an SSH string, not a host name", name),
			"Use a short name as the key and put the connection string under 'ssh'.")
	}
	if strings.ContainsAny(name, "/, ") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host name '%s' contains a separator", name),
			"Host names can't contain '/', ',' or spaces.")
	}
	return nil
}

func validateMetrics(metrics []MetricConfig) error {
	seen := make(map[string]string, len(metrics))
	for _, m := range metrics {
		if other, dup := seen[m.ID]; dup {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Metrics '%s' and '%s' share the id '%s'", other, m.Label, m.ID),
				"Give each metric a unique id, or remove the id to have one derived.")
		}
		seen[m.ID] = m.Label

		if stats.ContainsMarker(m.Command) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Metric '%s' mentions a reserved output marker", m.Label),
				"Commands can't contain 'TABBY-STATS-'; it would break parsing.")
		}

		if stats.HasShellComment(m.Command) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Metric '%s' has a shell comment in its command", m.Label),
				"All commands run on one line, so '#' would hide the rest of the probe. Remove the comment or quote the '#'.")
		}
	}
	return nil
}

// formatFieldError turns a validator failure into a readable sentence.
func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s can't be negative", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got '%v')", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}
