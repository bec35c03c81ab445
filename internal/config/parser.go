// Package config provides configuration file parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/goelt-homelab/internal/models"
	"github.com/spf13/viper"
)

// Default probe settings, matching the pg_isready polling contract.
const (
	DefaultMaxRetries   = 5
	DefaultDelaySeconds = 5
	DefaultPostgresPort = 5432
)

// ErrSectionMissing is returned when a required configuration section is
// absent. Callers can match it with errors.Is.
var ErrSectionMissing = errors.New("required section missing")

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser for INI-style files.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("ini")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.TransferConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.TransferConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.TransferConfig, error) {
	cfg := &models.TransferConfig{}

	// Both connection sections are required.
	if !p.v.IsSet("source_postgres") {
		return nil, fmt.Errorf("%w: source_postgres", ErrSectionMissing)
	}
	if !p.v.IsSet("destination_postgres") {
		return nil, fmt.Errorf("%w: destination_postgres", ErrSectionMissing)
	}

	var err error
	cfg.Source, err = p.parseConnection("source_postgres")
	if err != nil {
		return nil, err
	}
	cfg.Destination, err = p.parseConnection("destination_postgres")
	if err != nil {
		return nil, err
	}

	// Probe settings. max_retries = 0 is a valid explicit choice (probe
	// disabled), so defaults only apply when the key is absent.
	cfg.Probe = models.ProbeSettings{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultDelaySeconds * time.Second,
	}
	if p.v.IsSet("transfer.max_retries") {
		cfg.Probe.MaxRetries = p.v.GetInt("transfer.max_retries")
	}
	if p.v.IsSet("transfer.delay_seconds") {
		cfg.Probe.Delay = time.Duration(p.v.GetInt("transfer.delay_seconds")) * time.Second
	}
	if cfg.Probe.MaxRetries < 0 {
		return nil, fmt.Errorf("transfer.max_retries must not be negative")
	}
	if cfg.Probe.Delay < 0 {
		return nil, fmt.Errorf("transfer.delay_seconds must not be negative")
	}

	cfg.Transfer = models.TransferSettings{
		WorkDir: p.expandEnv(p.v.GetString("transfer.work_dir")),
	}
	if cfg.Transfer.WorkDir == "" {
		cfg.Transfer.WorkDir = os.TempDir()
	}

	// Parse optional WOL config.
	if p.v.IsSet("wol") {
		cfg.WOL = &models.WOLConfig{
			MACAddress:  p.v.GetString("wol.mac_address"),
			BroadcastIP: p.v.GetString("wol.broadcast_ip"),
			BootWait:    p.v.GetDuration("wol.boot_wait"),
		}

		if cfg.WOL.MACAddress == "" {
			return nil, fmt.Errorf("wol.mac_address is required when wol is configured")
		}
		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = "255.255.255.255"
		}
	}

	// Parse optional SSH shutdown config.
	if p.v.IsSet("ssh_shutdown") {
		cfg.SSHShutdown = &models.SSHShutdownConfig{
			Host:          p.v.GetString("ssh_shutdown.host"),
			Port:          p.v.GetInt("ssh_shutdown.port"),
			Username:      p.v.GetString("ssh_shutdown.username"),
			KeyPath:       p.expandEnv(p.v.GetString("ssh_shutdown.key_path")),
			ShutdownDelay: p.v.GetInt("ssh_shutdown.shutdown_delay"),
		}

		if cfg.SSHShutdown.Host == "" {
			cfg.SSHShutdown.Host = cfg.Source.Host
		}
		if cfg.SSHShutdown.Port == 0 {
			cfg.SSHShutdown.Port = 22
		}
		if cfg.SSHShutdown.Username == "" {
			cfg.SSHShutdown.Username = "root"
		}
		if cfg.SSHShutdown.KeyPath == "" {
			return nil, fmt.Errorf("ssh_shutdown.key_path is required when ssh_shutdown is configured")
		}
		if cfg.SSHShutdown.ShutdownDelay == 0 {
			cfg.SSHShutdown.ShutdownDelay = 1
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// parseConnection reads one connection section. dbname, user, password and
// host are all required within a present section.
func (p *Parser) parseConnection(section string) (models.ConnectionConfig, error) {
	conn := models.ConnectionConfig{
		Database: p.v.GetString(section + ".dbname"),
		Username: p.v.GetString(section + ".user"),
		Password: p.expandEnv(p.v.GetString(section + ".password")),
		Host:     p.v.GetString(section + ".host"),
		Port:     p.v.GetInt(section + ".port"),
	}

	if conn.Database == "" {
		return conn, fmt.Errorf("%s.dbname is required", section)
	}
	if conn.Username == "" {
		return conn, fmt.Errorf("%s.user is required", section)
	}
	if !p.v.IsSet(section + ".password") {
		return conn, fmt.Errorf("%s.password is required", section)
	}
	if conn.Host == "" {
		return conn, fmt.Errorf("%s.host is required", section)
	}
	if conn.Port == 0 {
		conn.Port = DefaultPostgresPort
	}

	return conn, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.TransferConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	for section, conn := range map[string]models.ConnectionConfig{
		"source_postgres":      cfg.Source,
		"destination_postgres": cfg.Destination,
	} {
		if conn.Host == "" {
			return fmt.Errorf("%s.host is required", section)
		}
		if conn.Database == "" {
			return fmt.Errorf("%s.dbname is required", section)
		}
		if conn.Username == "" {
			return fmt.Errorf("%s.user is required", section)
		}
	}

	if cfg.Probe.MaxRetries < 0 {
		return fmt.Errorf("transfer.max_retries must not be negative")
	}

	return nil
}
