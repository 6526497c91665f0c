package catalog

import (
	"fmt"
	"sync"
)

var (
	builtin     *Catalog
	builtinOnce sync.Once
)

// Builtin returns the process-wide default catalog (thread-safe, lazily
// built). It panics if a built-in entry fails to compile, which the package
// tests rule out.
func Builtin() *Catalog {
	builtinOnce.Do(func() {
		c, err := New(BuiltinEntries(), BuiltinGroups())
		if err != nil {
			panic(fmt.Sprintf("invalid built-in catalog: %v", err))
		}
		builtin = c
	})
	return builtin
}

// BuiltinEntries returns the definitions of the default catalog.
func BuiltinEntries() []Entry {
	return []Entry{
		{
			Name:        "email",
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`,
			Replacement: "***@***.***",
			Description: "Email addresses",
		},
		{
			Name:        "creditCard",
			Pattern:     `\b(?:\d{4}[-\s]?){3}\d{4}\b`,
			Replacement: "****-****-****-****",
			Description: "Credit card numbers",
		},
		{
			Name:        "aadhaar",
			Pattern:     `\b\d{4}\s?\d{4}\s?\d{4}\b`,
			Replacement: "****-****-****",
			Description: "Aadhaar numbers",
		},
		{
			Name:        "pan",
			Pattern:     `\b[A-Z]{5}[0-9]{4}[A-Z]\b`,
			Replacement: "*****####*",
			Description: "PAN numbers",
		},
		{
			Name:        "phoneIndia",
			Pattern:     `\b(?:\+91[-.\s]?)?[6-9]\d{9}\b`,
			Replacement: "**********",
			Description: "Indian phone numbers",
		},
		{
			Name:        "phone",
			Pattern:     `\b(?:\+91[-.\s]?)?[6-9]\d{9}\b|\b(?:\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})\b`,
			Replacement: "***-***-****",
			Description: "Phone numbers (India and NANP)",
		},
		{
			Name:        "ipv4",
			Pattern:     `\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`,
			Replacement: "***.***.***.***",
			Description: "IPv4 addresses",
		},
		{
			Name:        "apiKey",
			Pattern:     `\b[A-Za-z0-9]{20,}\b`,
			Replacement: "***API_KEY***",
			Description: "API keys",
		},
		{
			Name:        "jwt",
			Pattern:     `\beyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*\b`,
			Replacement: "***JWT_TOKEN***",
			Description: "JWT tokens",
		},
		{
			Name:        "password",
			Pattern:     `(?i)(password|passwd|pwd)\s*[:=]\s*[^\s,}]+`,
			Replacement: "${1}=***REDACTED***",
			Description: "Password key/value pairs",
		},
		{
			Name:        "bankAccount",
			Pattern:     `\b\d{9,18}\b`,
			Replacement: "****-****-****-****",
			Description: "Bank account numbers",
		},
		{
			Name:        "ifsc",
			Pattern:     `\b[A-Z]{4}0[A-Z0-9]{6}\b`,
			Replacement: "****0******",
			Description: "IFSC codes",
		},
		{
			Name:        "upi",
			Pattern:     `\b[A-Za-z0-9._-]+@[a-z]+\b`,
			Replacement: "***@***",
			Description: "UPI IDs",
		},
		{
			Name:        "vehicleNumber",
			Pattern:     `\b[A-Z]{2}\s?\d{2}\s?[A-Z]{1,2}\s?\d{4}\b`,
			Replacement: "** ** ** ****",
			Description: "Vehicle registration numbers",
		},
		{
			Name:        "drivingLicense",
			Pattern:     `\b[A-Z]{2}\d{2}\d{4}\d{7}\b`,
			Replacement: "**##****#######",
			Description: "Driving license numbers",
		},
		{
			Name:        "passport",
			Pattern:     `\b[A-Z]\d{7}\b`,
			Replacement: "*#######",
			Description: "Passport numbers",
		},
		{
			Name:        "ssn",
			Pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
			Replacement: "***-**-****",
			Description: "US social security numbers",
		},
		{
			Name:        "certificate",
			Pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
			Replacement: "***CERTIFICATE***",
			Description: "PEM certificates and keys",
		},
		{
			Name:        "sshKey",
			Pattern:     `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`,
			Replacement: "***SSH_KEY***",
			Description: "SSH public keys",
		},
		{
			Name:        "awsAccessKey",
			Pattern:     `\bAKIA[A-Z0-9]{16}\b`,
			Replacement: "***AWS_KEY***",
			Description: "AWS access key IDs",
		},
		{
			Name:        "githubToken",
			Pattern:     `\bgh[pousr]_[A-Za-z0-9_]{36,255}\b`,
			Replacement: "***GITHUB_TOKEN***",
			Description: "GitHub tokens",
		},
		{
			Name:        "slackToken",
			Pattern:     `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
			Replacement: "***SLACK_TOKEN***",
			Description: "Slack tokens",
		},
	}
}

// BuiltinGroups returns the default pattern groups. Member order is the
// order rules are applied in.
func BuiltinGroups() map[string][]string {
	return map[string][]string{
		"india":       {"aadhaar", "pan", "phoneIndia", "bankAccount", "ifsc", "upi", "vehicleNumber", "drivingLicense", "passport"},
		"contact":     {"email", "phone"},
		"financial":   {"creditCard", "bankAccount", "ifsc", "upi"},
		"credentials": {"password", "jwt", "certificate", "sshKey", "awsAccessKey", "githubToken", "slackToken", "apiKey"},
		"network":     {"ipv4"},
	}
}
