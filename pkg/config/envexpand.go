package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands environment variables written as {{.VAR_NAME}}.
//
// The shell-style $VAR and ${VAR} forms are left alone: masking rules use
// ${1} to refer to capture groups and their patterns end in $, e.g.
//
//	replacement: "${1}=***REDACTED***"   → preserved literally
//	url: "{{.COLLECTOR_URL}}/logs"        → value of COLLECTOR_URL + "/logs"
//
// Missing variables expand to the empty string. If the content is not a
// valid template it is returned unchanged for the YAML parser to judge.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		return data
	}
	return buf.Bytes()
}
