package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	host      string
	apiKey    string
	model     string
	vendor    string
	noStream  bool
	noSpinner bool
	verbose   bool
	Version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "prism",
	Version: Version,
	Short:   "Prism - AI assistant with smart context discovery",
	Long: `Prism is an interactive AI assistant for software development.
It discovers the most relevant files in your project, fits them into a
token budget, and carries that context into every conversation.`,
	Run: func(cmd *cobra.Command, args []string) {
		startREPL()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.prism/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "LLM server URL (vendor default when empty)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", "", "API key (falls back to ANTHROPIC_API_KEY / OPENAI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model name (auto-detected when empty)")
	rootCmd.PersistentFlags().StringVar(&vendor, "vendor", "", "LLM vendor (auto, openai, anthropic, compatible)")
	rootCmd.PersistentFlags().BoolVar(&noStream, "no-stream", false, "disable streaming output")
	rootCmd.PersistentFlags().BoolVar(&noSpinner, "no-spinner", false, "disable spinner animations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("key", rootCmd.PersistentFlags().Lookup("key"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("vendor", rootCmd.PersistentFlags().Lookup("vendor"))
	viper.BindPFlag("no_stream", rootCmd.PersistentFlags().Lookup("no-stream"))
	viper.BindPFlag("no_spinner", rootCmd.PersistentFlags().Lookup("no-spinner"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".prism")
		os.MkdirAll(configDir, 0755)

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PRISM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger; debug level with --verbose
func newLogger() *zap.Logger {
	if viper.GetBool("verbose") {
		if logger, err := zap.NewDevelopment(); err == nil {
			return logger
		}
	}
	return zap.NewNop()
}
