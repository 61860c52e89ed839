package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// LoadDotenv loads a .env file from the current working directory into the
// process environment, without overriding variables that are already set.
// A missing .env file is not an error — most invocations won't have one.
func LoadDotenv() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("config: loading .env: %w", err)
	}

	return nil
}

// loadFile reads and parses a TOML config file. A missing file returns a
// zero File: the CLI works without any config file as long as the
// environment supplies the server URL and workspace.
func loadFile(path string) (*File, error) {
	var f File

	if path == "" {
		return &f, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &f, nil
	}

	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &f, nil
}

// Resolve applies the override chain and returns the effective settings:
// defaults -> config file -> environment -> CLI flags. The .env file must
// already be loaded into the environment (LoadDotenv) for its values to
// participate in the environment layer.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Settings, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	file, err := loadFile(cfgPath)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		ServerURL:  file.ServerURL,
		Workspace:  file.Workspace,
		ClientID:   file.ClientID,
		DisableSSL: file.DisableSSL,
	}

	if env.ServerURL != "" {
		s.ServerURL = env.ServerURL
	}

	if env.Workspace != "" {
		s.Workspace = env.Workspace
	}

	if env.ClientID != "" {
		s.ClientID = env.ClientID
	}

	if env.DisableSSL {
		s.DisableSSL = true
	}

	s.Token = env.Token

	if cli.DisableSSL != nil {
		s.DisableSSL = *cli.DisableSSL
	}

	if s.ClientID == "" {
		s.ClientID = DefaultClientID
	}

	return s, nil
}

// Validate checks that the settings carry everything needed to open a
// connection. Token absence is not an error here: the credential store
// may still produce a cached token.
func Validate(s *Settings) error {
	if s.ServerURL == "" {
		return fmt.Errorf("config: %s is not set", EnvServerURL)
	}

	if s.Workspace == "" {
		return fmt.Errorf("config: %s is not set", EnvWorkspace)
	}

	return nil
}
