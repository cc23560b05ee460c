package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"seedpick/pkg/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "seedpick [torrent-id]",
		Short: "Pick which files of a torrent to download",
		Long: `Seedpick browses the file tree of a torrent on a Transmission-compatible
daemon and edits which files are wanted and at what priority.

By default, seedpick launches an interactive TUI. Use --no-interactive or
--output for scripted output.

Examples:
  seedpick 42                       # Browse torrent 42 interactively
  seedpick -n 42                    # Dump the file tree as text
  seedpick -n -j 42                 # Dump the file tree as JSON
  seedpick --url http://nas:9091/transmission/rpc --torrent 42`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFiles,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/seedpick/config.yaml)")
	rootCmd.PersistentFlags().String("url", "", "Transmission RPC endpoint")
	rootCmd.PersistentFlags().StringP("username", "u", "", "RPC username")
	rootCmd.PersistentFlags().String("password", "", "RPC password")
	rootCmd.PersistentFlags().IntP("torrent", "t", 0, "torrent id (alternative to the positional argument)")
	rootCmd.PersistentFlags().BoolP("no-interactive", "n", false, "disable TUI, use text output")
	rootCmd.PersistentFlags().StringP("output", "o", "plain", "non-interactive output format (plain, json)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "shorthand for --no-interactive --output json")
	rootCmd.PersistentFlags().Duration("refresh", 0, "progress poll interval (e.g. 5s)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	// Bind flags to viper
	_ = viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	_ = viper.BindPFlag("username", rootCmd.PersistentFlags().Lookup("username"))
	_ = viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password"))
	_ = viper.BindPFlag("torrent", rootCmd.PersistentFlags().Lookup("torrent"))
	_ = viper.BindPFlag("no_interactive", rootCmd.PersistentFlags().Lookup("no-interactive"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Add config paths in order of precedence
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "seedpick"))
		}
		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "seedpick"))
		}
	}

	viper.SetEnvPrefix("SEEDPICK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults()

	// The --refresh flag overrides the config file only when set.
	if f := rootCmd.PersistentFlags().Lookup("refresh"); f != nil && f.Changed {
		if d, err := time.ParseDuration(f.Value.String()); err == nil {
			viper.Set("refresh_interval", d)
		}
	}

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
