// Package config centralizes viper setup: defaults, the optional config
// file, and environment variable substitution inside it.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/bessie-ai/bessie/internal/gemini"
)

// Viper keys shared between the command layer and this package.
const (
	KeyModel       = "model"
	KeyAPIBase     = "api-base"
	KeyTimeout     = "timeout"
	KeyHistoryFile = "history-file"
	KeyLogFile     = "log-file"
	KeyEnvFile     = "env-file"
	KeyInsecureTLS = "insecure-tls"
	KeyDebug       = "debug"
)

// Init registers defaults, enables BESSIE_* environment overrides, and loads
// the config file: an explicit path if given, otherwise .bessie.{yml,json}
// in the current or home directory. A missing config file is not an error.
func Init(configFile string) error {
	setDefaults()

	viper.SetEnvPrefix("BESSIE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		return loadWithEnvSubstitution(configFile)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return errors.Wrap(err, "finding home directory")
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.SetConfigName(".bessie")
	if err := viper.ReadInConfig(); err == nil {
		if path := viper.ConfigFileUsed(); path != "" {
			return loadWithEnvSubstitution(path)
		}
	}
	return nil
}

func setDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	viper.SetDefault(KeyModel, gemini.DefaultModel)
	viper.SetDefault(KeyAPIBase, gemini.DefaultBaseURL)
	viper.SetDefault(KeyTimeout, 10*time.Second)
	viper.SetDefault(KeyHistoryFile, filepath.Join(home, ".bessie", "conversation-history.json"))
	viper.SetDefault(KeyLogFile, filepath.Join(home, ".bessie", "logs", "responder.log"))
	viper.SetDefault(KeyEnvFile, filepath.Join(home, ".claude", ".env"))
	viper.SetDefault(KeyInsecureTLS, false)
}

// loadWithEnvSubstitution reads a config file, expands ${env://VAR} and
// ${env://VAR:-default} references, and merges the result into viper.
func loadWithEnvSubstitution(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}

	processed, err := substituteEnvVars(string(raw))
	if err != nil {
		return errors.Wrapf(err, "config file %s", path)
	}

	configType := "yaml"
	if strings.HasSuffix(path, ".json") {
		configType = "json"
	}

	viper.SetConfigFile(path)
	viper.SetConfigType(configType)
	return viper.ReadConfig(strings.NewReader(processed))
}
