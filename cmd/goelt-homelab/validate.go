package main

import (
	"fmt"
	"os"

	"github.com/fgeck/goelt-homelab/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without probing any server or moving any data.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Source:")
	fmt.Printf("  Host: %s\n", cfg.Source.Host)
	fmt.Printf("  Port: %d\n", cfg.Source.Port)
	fmt.Printf("  Database: %s\n", cfg.Source.Database)
	fmt.Printf("  User: %s\n", cfg.Source.Username)
	fmt.Println()
	fmt.Println("Destination:")
	fmt.Printf("  Host: %s\n", cfg.Destination.Host)
	fmt.Printf("  Port: %d\n", cfg.Destination.Port)
	fmt.Printf("  Database: %s\n", cfg.Destination.Database)
	fmt.Printf("  User: %s\n", cfg.Destination.Username)
	fmt.Println()
	fmt.Println("Probe:")
	fmt.Printf("  Max retries: %d\n", cfg.Probe.MaxRetries)
	fmt.Printf("  Delay: %s\n", cfg.Probe.Delay)
	fmt.Println()
	fmt.Println("Transfer:")
	fmt.Printf("  Work dir: %s\n", cfg.Transfer.WorkDir)
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Printf("  SSH Shutdown: %v\n", cfg.SSHShutdown != nil)
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.WOL != nil {
		fmt.Println()
		fmt.Println("WOL Configuration:")
		fmt.Printf("  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Printf("  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		if cfg.WOL.BootWait > 0 {
			fmt.Printf("  Boot Wait: %s\n", cfg.WOL.BootWait)
		}
	}

	if cfg.SSHShutdown != nil {
		fmt.Println()
		fmt.Println("SSH Shutdown Configuration:")
		fmt.Printf("  Host: %s\n", cfg.SSHShutdown.Host)
		fmt.Printf("  Port: %d\n", cfg.SSHShutdown.Port)
		fmt.Printf("  Username: %s\n", cfg.SSHShutdown.Username)
		fmt.Printf("  Shutdown Delay: %d minute(s)\n", cfg.SSHShutdown.ShutdownDelay)
	}

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	return nil
}
