// Package config loads the JSON or YAML configuration file, validates it
// against the converter registry and watches it for changes.
//
// Decoding is strict: unknown keys fail the load. YAML is converted to JSON
// first so both formats go through the same decoder.
package config
