/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"typedkv/internal/config"
	"typedkv/internal/logger"
	"typedkv/pkg/typed"

	"github.com/spf13/cobra"
)

// app carries state resolved once per invocation and shared by subcommands
type app struct {
	cfg *config.Config
	acc *typed.Accessor
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "typedkv",
		Short: "Typed values over a Redis-compatible store",
		Long: `typedkv stores strings, numbers, booleans and collections in a
Redis-compatible store and reads them back with their types checked.

Run "typedkv serve" for an in-memory server, then use the get/set family
against it or against any Redis server with --redis-url.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	// general
	rootCmd.PersistentFlags().String("config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file read before TYPEDKV_* variables")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newShellCmd(a),
		newBenchmarkCmd(a),
		newVersionCmd(),
	)
	rootCmd.AddCommand(a.clientCmds()...)
	return rootCmd
}

// Execute runs the command tree. Called by main.main().
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

// load resolves configuration for cmd and configures the process logger
func (a *app) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(getStringFlag(cmd, "env-file", ".env")); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	loader := config.NewLoader()
	if path := getStringFlag(cmd, "config", ""); path != "" {
		loader.SetConfigFile(path)
	}
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	lc := cfg.Logger()
	lc.Output = cmd.ErrOrStderr()
	logger.Configure(lc)

	a.cfg = cfg
	return nil
}

// Helper functions for flag parsing
func getStringFlag(cmd *cobra.Command, name, defaultValue string) string {
	if value, err := cmd.Flags().GetString(name); err == nil && value != "" {
		return value
	}
	return defaultValue
}

func getBoolFlag(cmd *cobra.Command, name string) bool {
	if value, err := cmd.Flags().GetBool(name); err == nil {
		return value
	}
	return false
}

func getDurationFlag(cmd *cobra.Command, name string, defaultValue time.Duration) time.Duration {
	if value, err := cmd.Flags().GetDuration(name); err == nil {
		return value
	}
	return defaultValue
}
