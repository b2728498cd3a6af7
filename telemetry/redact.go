package telemetry

import "strings"

// sensitiveKeys is the closed set of log-field names that must never reach
// stdout or the audit sink verbatim — patient identifiers and credentials
// alike, since a log field can carry either depending on which stage wrote
// it.
var sensitiveKeys = []string{
	"password", "token", "api_key", "secret", "auth", "credential",
	"ssn", "patient_id", "medical_record_number", "dob", "phone", "email", "address",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sub := range sensitiveKeys {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// redact returns a copy of fields with sensitive values replaced. The input
// map is never mutated so callers can reuse it after logging.
func redact(fields map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return fields
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}
