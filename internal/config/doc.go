// Package config defines configuration structures for the quadfetch CLI.
//
// Configuration can be provided via:
//   - YAML configuration file
//   - Environment variables (QUADFETCH_ prefix)
//   - Command-line flags
//
// Later sources override earlier ones. The API key itself is never stored
// in the config struct: APIKey() resolves it from QUADFETCH_API_KEY or the
// configured key file at the moment it is needed.
package config
