package paramstore

// Request describes one parameter to read or delete.
type Request struct {
	// Name is the full parameter name in the store. Required, and unique
	// within a batch.
	Name string

	// Target, when non-empty, is a local file path. Get materializes the
	// resolved value there durably; Delete removes the file after the
	// store confirms the deletion.
	Target string

	// Default is the fallback value used when the store returns no value
	// for Name. A nil Default means the parameter is required: a missing
	// value then fails the whole batch. The pointer distinguishes "no
	// default" from an intentionally empty one.
	Default *string
}

// WriteRequest describes one parameter to write. The embedded Request
// controls the read-back after the write: the returned value, and any
// target materialization, flow through the same path Get uses.
type WriteRequest struct {
	Request

	// Content is the value to store.
	Content string

	// Encrypted selects the encrypted parameter type (SecureString),
	// stored under the account's default key unless KeyID names one.
	Encrypted bool

	// KeyID optionally names the KMS key for encrypted parameters.
	KeyID string

	// Description optionally annotates the parameter in the store.
	Description string

	// Overwrite permits replacing an existing parameter. When false, a
	// write to an existing name is rejected by the store.
	Overwrite bool
}
