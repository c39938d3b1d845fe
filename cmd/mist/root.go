package main

import (
	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mist",
	Short: "Provision small fleets of virtual machines",
	Long: `Mist provisions small fleets of virtual machines.

A fleet is declared in mist.yaml alongside a catalog of templated commands.
Mist resolves each command onto concrete instances by role, runs every
instance's sequence concurrently, and can emit netplan network configuration
for the fleet's static addresses.
`,
	// errors from RunE are already reported; repeating usage just buries them
	SilenceUsage: true,
}

// globalConfig holds user-level settings, projectConfig the fleet declaration
// of the current directory.
var globalConfig = viper.New()
var projectConfig = viper.New()

func init() {
	cobra.OnInitialize(initGlobalConfig, initProjectConfig)
}

// initGlobalConfig reads user-level settings from the XDG config home,
// overridable through the environment.
func initGlobalConfig() {
	configFilePath, err := xdg.ConfigFile("mist/config.yaml")

	cobra.CheckErr(err)

	globalConfig.SetConfigFile(configFilePath)
	globalConfig.AutomaticEnv()

	if err := globalConfig.ReadInConfig(); err == nil {
		log.Debug("Loaded global config", "file", globalConfig.ConfigFileUsed())
	}
}

// initProjectConfig looks for mist.yaml in the working directory or .mist/,
// overridable through the environment. A missing file is fine; subcommands
// that need a fleet report it themselves.
func initProjectConfig() {
	projectConfig.SetConfigName("mist")
	projectConfig.SetConfigType("yaml")
	projectConfig.AddConfigPath(".")
	projectConfig.AddConfigPath(".mist")

	projectConfig.AutomaticEnv()

	if err := projectConfig.ReadInConfig(); err == nil {
		log.Debug("Loaded project config", "file", projectConfig.ConfigFileUsed())
	}
}
