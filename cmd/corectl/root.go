package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"alchemicore/internal/corecfg"
	"alchemicore/internal/corelog"
)

var cfgFile string

var log = corelog.NewContextLogger(corelog.New(corelog.DefaultConfig()), map[string]any{"component": "corectl"})

// RootCmd is the corectl entry point. Besides --config (an optional config
// file), its only flags are the four connection inputs corecfg enumerates;
// every subcommand reads the resolved CoreConfig via loadConfig.
var RootCmd = &cobra.Command{
	Use:   "corectl",
	Short: "administer the alchemicore state store",
	Long: `corectl initializes schema constraints, runs consistency checks,
resets a database to empty, inspects TaskHub queues, and lists the
scheduler operations recorded in memory by its own store.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.corectl.yaml)")
	RootCmd.PersistentFlags().String("db-url", "", "database URL (neo4j://...)")
	RootCmd.PersistentFlags().String("db-user", "", "database user")
	RootCmd.PersistentFlags().String("db-password", "", "database password")
	RootCmd.PersistentFlags().String("db-name", "", "database name")

	viper.BindPFlag("db.url", RootCmd.PersistentFlags().Lookup("db-url"))
	viper.BindPFlag("db.user", RootCmd.PersistentFlags().Lookup("db-user"))
	viper.BindPFlag("db.password", RootCmd.PersistentFlags().Lookup("db-password"))
	viper.BindPFlag("db.name", RootCmd.PersistentFlags().Lookup("db-name"))

	RootCmd.AddCommand(initCmd, checkCmd, resetCmd, taskhubCmd, opsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".corectl")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves CoreConfig from flags/env/config file, falling back
// to corecfg.LoadCoreConfig's environment defaults for anything viper
// never saw set.
func loadConfig() corecfg.CoreConfig {
	defaults := corecfg.LoadCoreConfig("ALCHEMICORE")
	cfg := corecfg.CoreConfig{
		URL:      viper.GetString("db.url"),
		User:     viper.GetString("db.user"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.name"),
	}
	if cfg.URL == "" {
		cfg.URL = defaults.URL
	}
	if cfg.User == "" {
		cfg.User = defaults.User
	}
	if cfg.Password == "" {
		cfg.Password = defaults.Password
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	return cfg
}

// Execute runs the CLI, exiting with status 1 on error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.WithError(err).Error("corectl failed")
		os.Exit(1)
	}
}
