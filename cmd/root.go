package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bessie-ai/bessie/internal/app"
	"github.com/bessie-ai/bessie/internal/config"
	"github.com/bessie-ai/bessie/internal/credential"
	"github.com/bessie-ai/bessie/internal/gemini"
	"github.com/bessie-ai/bessie/internal/logging"
	"github.com/bessie-ai/bessie/internal/transcript"
)

var (
	configFile  string
	modelFlag   string
	apiBase     string
	historyFile string
	logFile     string
	envFile     string
	insecureTLS bool
	debugMode   bool
)

// rootCmd is the whole CLI: one message in, one reply out. It is invoked by
// a messaging automation script, so success and failure must be cleanly
// distinguishable from the exit status and stdout alone.
var rootCmd = &cobra.Command{
	Use:   "bessie <message>",
	Short: "Reply to one message with Gemini, keeping rolling conversation context",
	Long: `bessie is a one-shot bridge between a messaging automation script and the
Gemini generation API. It takes a single message argument, prints one reply
to stdout, and silently maintains a bounded conversation history between
invocations so the model keeps multi-turn context.

On success it exits 0 with the reply on stdout. Every failure path exits 1
with no stdout output and is observable only in the log file.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args)
	},
}

// Execute runs the root command with the version set. Called from main.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.ExecuteContext(context.Background())
}

// initConfig loads viper defaults and the optional config file. Called by
// cobra before command execution.
func initConfig() {
	if err := config.Init(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is $HOME/.bessie.yml)")
	flags.StringVarP(&modelFlag, "model", "m", gemini.DefaultModel, "Gemini model id")
	flags.StringVar(&apiBase, "api-base", gemini.DefaultBaseURL, "base URL of the generation API")
	flags.StringVar(&historyFile, "history-file", "", "conversation history file (default is $HOME/.bessie/conversation-history.json)")
	flags.StringVar(&logFile, "log-file", "", "log file (default is $HOME/.bessie/logs/responder.log)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file holding GOOGLE_API_KEY (default is $HOME/.claude/.env)")
	flags.BoolVar(&insecureTLS, "insecure-tls", false, "fall back to unverified TLS when no trust store resolves (WARNING: insecure)")
	flags.BoolVar(&debugMode, "debug", false, "tee log output to stderr")

	_ = viper.BindPFlag(config.KeyModel, flags.Lookup("model"))
	_ = viper.BindPFlag(config.KeyAPIBase, flags.Lookup("api-base"))
	_ = viper.BindPFlag(config.KeyHistoryFile, flags.Lookup("history-file"))
	_ = viper.BindPFlag(config.KeyLogFile, flags.Lookup("log-file"))
	_ = viper.BindPFlag(config.KeyEnvFile, flags.Lookup("env-file"))
	_ = viper.BindPFlag(config.KeyInsecureTLS, flags.Lookup("insecure-tls"))
	_ = viper.BindPFlag(config.KeyDebug, flags.Lookup("debug"))
}

func run(ctx context.Context, args []string) error {
	log := logging.New(viper.GetString(config.KeyLogFile), viper.GetBool(config.KeyDebug)).
		With().Str("invocation", shortID()).Logger()

	if len(args) < 1 {
		log.Error().Msg("no message provided")
		return app.ErrEmptyMessage
	}

	client := gemini.New(gemini.Config{
		BaseURL:          viper.GetString(config.KeyAPIBase),
		Model:            viper.GetString(config.KeyModel),
		Timeout:          viper.GetDuration(config.KeyTimeout),
		AllowInsecureTLS: viper.GetBool(config.KeyInsecureTLS),
		Logger:           log,
	})

	responder := &app.App{
		Store:  transcript.NewFileStore(viper.GetString(config.KeyHistoryFile)),
		Client: client,
		Keys: func() (string, bool) {
			return credential.Resolve(viper.GetString(config.KeyEnvFile), log)
		},
		Log:    log,
		Stdout: os.Stdout,
	}
	return responder.Run(ctx, args[0])
}

// shortID tags every log line of this invocation so interleaved runs can be
// told apart in the shared log file.
func shortID() string {
	return uuid.NewString()[:8]
}
