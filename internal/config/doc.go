// Package config manages user-level settings stored at ~/.qs/config.yaml
// and QS_* environment variables: the default repository owner, the
// per-command timeout, the tool-install worker count and logging options.
// Settings are decoded into a typed struct and validated before use.
package config
