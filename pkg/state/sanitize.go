package state

import "strings"

// Substrings that mark an environment variable as carrying secrets. ROS 2
// security variables point at keystores and enclaves.
var sensitiveKeyPatterns = []string{
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"CREDENTIAL",
	"PRIVATE",
	"PASSPHRASE",
	"KEYSTORE",
	"ROS_SECURITY",
}

const redactedValue = "[REDACTED]"

// SanitizeEnv returns a copy of env with sensitive values redacted.
func SanitizeEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		if isSensitiveKey(k) {
			v = redactedValue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
