// Package config loads the server-side configuration from the `server:`
// section of config.yaml. The `agent:` key is ignored by the server binary.
//
// Load(path) applies defaults, unmarshals the YAML, then validates ports,
// auth mode and the alert rule table. Secrets (API key, webhook URLs) are
// named by environment variable and resolved on use.
package config
