package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prasenjit/go-mocksim/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override, e.g. MOCKSIM_SERVER_PORT
const envPrefix = "MOCKSIM"

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:     "mocksim",
		Short:   "Mocksim - scriptable mock API server",
		Version: version,
		Long: `Mocksim serves mocked HTTP endpoints whose responses are driven by
scenarios, call sequences, request conditions, injected errors, simulated
network failures and generated fake data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.AddCommand(serveCmd, initCmd)
}

// initConfig layers, lowest first: defaults, config file, .env, environment.
// Flags bound in subcommands win over all of them.
func initConfig() {
	_ = godotenv.Load() // optional

	switch {
	case cfgFile != "":
		viper.SetConfigFile(cfgFile)
	default:
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	config.BindEnv(viper.GetViper(), envPrefix)
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Could not read config file %s: %v\n", cfgFile, err)
	}
}
