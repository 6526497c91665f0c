package enrich

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/rs/xid"

	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// Built-in dynamic field names.
const (
	FieldHostname       = "hostname"
	FieldPID            = "pid"
	FieldServiceVersion = "service_version"
	FieldRegion         = "region"
	FieldEnvironment    = "environment"
	FieldRequestID      = "request_id"
	FieldTimestamp      = "timestamp"
)

// runtimeEnv is the process environment read by the built-in fields.
type runtimeEnv struct {
	Hostname       string `env:"HOSTNAME"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"unknown"`
	AWSRegion      string `env:"AWS_REGION"`
	Region         string `env:"REGION" envDefault:"unknown"`
	Environment    string `env:"APP_ENV" envDefault:"development"`
}

func loadRuntimeEnv() (runtimeEnv, error) {
	var e runtimeEnv
	if err := env.Parse(&e); err != nil {
		return runtimeEnv{}, fmt.Errorf("read environment: %w", err)
	}
	if e.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			e.Hostname = h
		} else {
			e.Hostname = "unknown"
		}
	}
	if e.AWSRegion != "" {
		e.Region = e.AWSRegion
	}
	return e, nil
}

// BuiltinNames returns the names accepted by Builtin, sorted.
func BuiltinNames() []string {
	names := []string{
		FieldHostname, FieldPID, FieldServiceVersion, FieldRegion,
		FieldEnvironment, FieldRequestID, FieldTimestamp,
	}
	slices.Sort(names)
	return names
}

// Builtin returns the named built-in dynamic fields, keyed by their names.
// Environment-derived values are read once, here.
func Builtin(names ...string) ([]Field, error) {
	rt, err := loadRuntimeEnv()
	if err != nil {
		return nil, err
	}
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		var fn Func
		switch name {
		case FieldHostname:
			fn = Static(rt.Hostname)
		case FieldPID:
			fn = Static(os.Getpid())
		case FieldServiceVersion:
			fn = Static(rt.ServiceVersion)
		case FieldRegion:
			fn = Static(rt.Region)
		case FieldEnvironment:
			fn = Static(rt.Environment)
		case FieldRequestID:
			fn = func(record.Record) (value.Value, error) {
				return value.StringValue(xid.New().String()), nil
			}
		case FieldTimestamp:
			fn = func(record.Record) (value.Value, error) {
				return value.StringValue(time.Now().UTC().Format(record.TimeFormat)), nil
			}
		default:
			return nil, fmt.Errorf("unknown enrichment field %q (known: %v)", name, BuiltinNames())
		}
		fields = append(fields, Field{Key: name, Fn: fn})
	}
	return fields, nil
}
