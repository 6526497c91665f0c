package policy

import (
	"slices"

	"github.com/samber/lo"
)

// Preset names.
const (
	PresetDefault    = "default"
	PresetProduction = "production"
)

// DefaultSpec is the policy of a default (development) logger.
func DefaultSpec() Spec {
	return Spec{
		SensitivePaths: []string{
			"password", "token", "secret", "key", "ssn",
			"creditCard", "cardNumber", "cvv", "email", "phone", "address",
		},
		MaskValue: lo.ToPtr(DefaultMaskValue),
		DeepScan:  lo.ToPtr(true),
		Patterns: catalogRefs(
			"email", "creditCard", "aadhaar", "pan", "phoneIndia", "password",
		),
	}
}

// ProductionSpec extends DefaultSpec with personal, network and Indian
// identity fields.
func ProductionSpec() Spec {
	return Spec{
		SensitivePaths: []string{
			"password", "token", "secret", "key", "aadhaar", "pan",
			"creditCard", "cardNumber", "cvv", "email", "phone", "address",
			"firstName", "lastName", "dateOfBirth", "ip", "userAgent",
			"bankAccount", "ifsc", "upi", "vehicleNumber", "drivingLicense", "passport",
		},
		MaskValue:      lo.ToPtr(DefaultMaskValue),
		DeepScan:       lo.ToPtr(true),
		PartialMasking: lo.ToPtr(true),
		Patterns: catalogRefs(
			"email", "creditCard", "aadhaar", "pan", "phoneIndia", "password",
			"ipv4", "apiKey", "jwt", "bankAccount", "ifsc", "upi",
			"vehicleNumber", "drivingLicense", "passport",
		),
	}
}

var presets = map[string]func() Spec{
	PresetDefault:    DefaultSpec,
	PresetProduction: ProductionSpec,
}

// Preset returns the named preset.
func Preset(name string) (Spec, bool) {
	fn, ok := presets[name]
	if !ok {
		return Spec{}, false
	}
	return fn(), true
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := lo.Keys(presets)
	slices.Sort(names)
	return names
}

func catalogRefs(names ...string) []PatternSpec {
	return lo.Map(names, func(name string, _ int) PatternSpec {
		return PatternSpec{Catalog: name}
	})
}
