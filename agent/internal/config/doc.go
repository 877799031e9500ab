// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: the `agent:` tree parsed from YAML
//   - AgentConfig: server_endpoint, scrape_interval, ship_interval, buffer_size,
//     window_size, sources [], server_auth
//   - Source: id, type (prometheus|otelcol), endpoint, value_metric, metrics [],
//     aggregate_every, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none), cert/key/ca files,
//     header, key_env, token_env, username, password_env; Key(), Token() and
//     Password() resolve secrets from environment variables
//
// Load(path) reads the YAML file, applies defaults (30s scrape, 15s ship,
// 1000 buffer, 60-row window), then validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory and calls
// onChange with the newly parsed Config, so atomic-save editors that rename a
// temp file over the config still trigger a reload.
package config
