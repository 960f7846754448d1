package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/willothy/overseer/internal/config"
)

// EnvPrefix prefixes environment variables that override config keys.
const EnvPrefix = "OVERSEER"

var rootCmd = &cobra.Command{
	Use:   "overseer",
	Short: "Run jobs of templated tasks in ordered, parallel sections",
	Long: `Overseer runs a job: an ordered list of sections, where the tasks of a
section run in parallel and a section starts only after every task in the
previous one succeeded. Tasks are built from templates found in the
configured template directories.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/overseer/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix(EnvPrefix)
	// e.g. OVERSEER_TASKS_SHELL for tasks.shell
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
