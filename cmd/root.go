package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:     "ytgram",
	Short:   "Media retrieval bot",
	Long:    "A chat bot that retrieves media by link, normalizes it, and delivers it back, with playlist and cancellation support.",
	Version: "1.0.0",
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.AddConfigPath("./data")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvPrefix("YTGRAM")
	viper.AutomaticEnv()
}
