package config

import "os"

// SnapshotPassphraseEnv names the environment variable holding the snapshot
// sealing passphrase. An environment variable instead of a flag keeps it
// out of shell history and process listings.
const SnapshotPassphraseEnv = "PARAMKIT_SNAPSHOT_PASSPHRASE"

// redactedPlaceholder is the string used to replace secret values in logs and serialization.
const redactedPlaceholder = "***REDACTED***"

// redactedJSON is the pre-computed JSON encoding of the redacted placeholder.
var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that prevents accidental logging or serialization
// of sensitive values. It overrides String() and MarshalJSON() to return a redacted
// placeholder, ensuring secrets are never leaked through fmt functions or JSON output.
//
// Use Unmask() to retrieve the raw plaintext value when it is genuinely needed
// (e.g., passing the snapshot passphrase to the sealer).
type SecretString string

// SnapshotPassphrase reads the snapshot passphrase from the environment,
// wrapped so it cannot leak through command logging. Callers check for the
// empty value themselves; whether an absent passphrase is an error depends
// on the operation.
func SnapshotPassphrase() SecretString {
	return SecretString(os.Getenv(SnapshotPassphraseEnv))
}

// String returns a redacted placeholder instead of the raw value.
// This is invoked by fmt.Sprintf, fmt.Println, and any other function
// that uses the fmt.Stringer interface.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
// This prevents secret values from being included in JSON-serialized
// config dumps or structured log entries.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret.
// Usage of this method should be strictly audited and limited to cases
// where the actual secret value is required.
func (s SecretString) Unmask() string {
	return string(s)
}
