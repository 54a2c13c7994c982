// Package credential resolves the Gemini API key from the shared dotenv file
// or, failing that, the process environment. The key is only ever read, never
// written or persisted.
package credential

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvVar is the variable holding the API key, in both the dotenv file and the
// process environment.
const EnvVar = "GOOGLE_API_KEY"

// Resolve looks for the API key in the dotenv file at envFile first, then in
// the process environment. It returns false when neither source yields a
// value; the caller treats that as a hard failure for the invocation. A file
// that exists but cannot be parsed is logged and skipped, never fatal.
func Resolve(envFile string, log zerolog.Logger) (string, bool) {
	if key, ok := fromFile(envFile, log); ok {
		return key, true
	}
	if key := clean(os.Getenv(EnvVar)); key != "" {
		return key, true
	}
	return "", false
}

func fromFile(path string, log zerolog.Logger) (string, bool) {
	if path == "" {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not parse credentials file")
		return "", false
	}

	key := clean(v.GetString(EnvVar))
	return key, key != ""
}

// clean trims whitespace and any surrounding quote characters.
func clean(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
