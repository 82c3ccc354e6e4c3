package config

import "log/slog"

const redactedPlaceholder = "***REDACTED***"

// SecretString keeps credentials out of logs and JSON dumps. Use Unmask when
// the raw value must be handed to a driver or client.
type SecretString string

// String implements fmt.Stringer with a redacted placeholder.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// LogValue implements slog.LogValuer so structured logs never carry the value.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// MarshalJSON always encodes the placeholder.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// Unmask returns the plaintext.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsSet reports whether a value was configured.
func (s SecretString) IsSet() bool {
	return s != ""
}
