// Package config loads, validates, and normalizes Quill's TOML configuration.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/quill/config.toml, then a project-local quill.toml, falling back
// to built-in defaults when no file exists. All path values are expanded and
// made absolute during load so downstream code never handles "~" or relative
// paths.
package config
