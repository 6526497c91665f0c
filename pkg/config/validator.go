package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/codeready-toolchain/logmask/pkg/catalog"
	"github.com/codeready-toolchain/logmask/pkg/enrich"
	"github.com/codeready-toolchain/logmask/pkg/policy"
)

// ConfigValidator validates configuration comprehensively with clear error messages
type ConfigValidator struct {
	cfg      *Config
	validate *validator.Validate
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report YAML keys rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &ConfigValidator{cfg: cfg, validate: v}
}

// validate runs ValidateAll and stores the resolved masking policy.
func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error).
// On success cfg.Policy holds the resolved masking policy.
func (v *ConfigValidator) ValidateAll() error {
	sections := []struct {
		name string
		obj  any
	}{
		{"logger", v.cfg.Logger},
		{"transports.http", v.cfg.Transports.HTTP},
		{"transports.sentry", v.cfg.Transports.Sentry},
		{"server", v.cfg.Server},
		{"diagnostics", v.cfg.Diagnostics},
		{"masking", v.cfg.Masking},
	}
	for _, s := range sections {
		if err := v.validateStruct(s.name, s.obj); err != nil {
			return err
		}
	}

	if err := v.validateEnrichment(); err != nil {
		return fmt.Errorf("enrichment validation failed: %w", err)
	}

	if err := v.resolvePolicy(); err != nil {
		return fmt.Errorf("masking policy validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateStruct(section string, obj any) error {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewValidationError(section, fe.Field(),
			fmt.Errorf("%w: %v fails %q", ErrInvalidValue, fe.Value(), fieldRule(fe)))
	}
	return NewValidationError(section, "", err)
}

func fieldRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func (v *ConfigValidator) validateEnrichment() error {
	unknown := lo.Without(v.cfg.Enrich.Dynamic, enrich.BuiltinNames()...)
	if len(unknown) > 0 {
		return NewValidationError("enrich", "dynamic",
			fmt.Errorf("%w: %s (known: %s)", ErrUnknownEnrichment,
				strings.Join(unknown, ", "), strings.Join(enrich.BuiltinNames(), ", ")))
	}
	for key := range v.cfg.Enrich.Static {
		if key == "" {
			return NewValidationError("enrich", "static", fmt.Errorf("%w: empty key", ErrInvalidValue))
		}
	}
	return nil
}

// resolvePolicy compiles the masking section against the built-in catalog.
// A *policy.ConfigurationError stays reachable through errors.As.
func (v *ConfigValidator) resolvePolicy() error {
	p, err := policy.Resolve(catalog.Builtin(), v.cfg.Masking.Spec)
	if err != nil {
		return NewValidationError("masking", "", err)
	}
	v.cfg.Policy = p
	return nil
}
