package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/peterM/HangFixer/internal/cmd/config"
	appconfig "github.com/peterM/HangFixer/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "hangfixer",
	Short: "Detect unfinished workspace loads and purge stale caches",
	Long: `HangFixer drops a sentinel file next to a workspace descriptor while the
host is loading it, and removes it once each load phase completes. If the
next load finds the sentinel still there, the previous attempt crashed or
hung, and the workspace's cache directories and session files are deleted
before loading continues.

Run 'hangfixer listen' under the host to drive this from lifecycle
notifications, or use the other commands to inspect and repair workspaces
by hand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/hangfixer/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level (debug, info, warn, error)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	config.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath("$HOME/.config/hangfixer")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("HANGFIXER")
	// e.g., HANGFIXER_RECOVERY_CACHE_DIRS for recovery.cache_dirs
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
