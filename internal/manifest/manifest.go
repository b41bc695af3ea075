// Package manifest loads declarative parameter manifests: JSON documents
// naming the parameters an application consumes, where each resolves to on
// disk, and what stands in when the store has no value. The CLI and the
// sidecar daemon both drive the parameter client from a manifest.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"paramkit/internal/paramstore"
)

// Entry describes one parameter in a manifest.
type Entry struct {
	// Name is the full parameter name in the store.
	Name string `json:"name" validate:"required"`

	// Target, when set, is the local file path the resolved value is
	// materialized to.
	Target string `json:"target,omitempty"`

	// Default, when present, is the fallback value used if the store has
	// no value for Name. Its absence marks the parameter required.
	Default *string `json:"default,omitempty"`
}

// Document is a parsed manifest.
type Document struct {
	Parameters []Entry `json:"parameters" validate:"required,min=1,unique=Name,dive"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding manifest JSON: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validating manifest: %w", err)
	}

	return &doc, nil
}

// Requests converts the manifest entries into parameter client requests,
// preserving order.
func (d *Document) Requests() []paramstore.Request {
	reqs := make([]paramstore.Request, len(d.Parameters))
	for i, entry := range d.Parameters {
		reqs[i] = paramstore.Request{
			Name:    entry.Name,
			Target:  entry.Target,
			Default: entry.Default,
		}
	}
	return reqs
}

// Names returns the parameter names in manifest order.
func (d *Document) Names() []string {
	names := make([]string, len(d.Parameters))
	for i, entry := range d.Parameters {
		names[i] = entry.Name
	}
	return names
}
