// Package config implements configuration resolution for hypha-apps. The
// override chain is defaults -> TOML config file -> .env file -> process
// environment -> CLI flags; later layers win. The token override
// (HYPHA_TOKEN) is carried through as an opaque string — validation is the
// credential store's job.
package config

import (
	"os"
	"strings"
)

// Environment variable names.
const (
	EnvServerURL  = "HYPHA_SERVER_URL"
	EnvWorkspace  = "HYPHA_WORKSPACE"
	EnvClientID   = "HYPHA_CLIENT_ID"
	EnvToken      = "HYPHA_TOKEN"
	EnvDisableSSL = "HYPHA_DISABLE_SSL"
	EnvConfig     = "HYPHA_CONFIG"
)

// DefaultClientID identifies this CLI to the server when no client ID is
// configured.
const DefaultClientID = "hypha-apps-go"

// Settings is the effective configuration after all layers are applied.
type Settings struct {
	ServerURL  string
	Workspace  string
	ClientID   string
	Token      string
	DisableSSL bool
}

// File is the TOML config file shape.
type File struct {
	ServerURL  string `toml:"server_url"`
	Workspace  string `toml:"workspace"`
	ClientID   string `toml:"client_id"`
	DisableSSL bool   `toml:"disable_ssl"`
}

// EnvOverrides holds raw values read from the environment.
type EnvOverrides struct {
	ServerURL  string
	Workspace  string
	ClientID   string
	Token      string
	DisableSSL bool
	ConfigPath string
}

// CLIOverrides holds values from CLI flags, the highest-priority layer.
// DisableSSL is a pointer so "flag not passed" is distinguishable from an
// explicit --disable-ssl=false.
type CLIOverrides struct {
	ConfigPath string
	DisableSSL *bool
}

// ReadEnvOverrides reads the HYPHA_* environment variables. It does not
// consult any file; callers load .env into the environment first.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ServerURL:  os.Getenv(EnvServerURL),
		Workspace:  os.Getenv(EnvWorkspace),
		ClientID:   os.Getenv(EnvClientID),
		Token:      os.Getenv(EnvToken),
		DisableSSL: BoolEnv(EnvDisableSSL, false),
		ConfigPath: os.Getenv(EnvConfig),
	}
}

// BoolEnv parses a boolean environment variable. Accepted truthy spellings
// are 1, true, yes, and on (case-insensitive); anything else is false. An
// unset variable returns the default.
func BoolEnv(name string, def bool) bool {
	val, ok := os.LookupEnv(name)
	if !ok {
		return def
	}

	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
