// Package models contains the data structures used throughout goelt-homelab.
package models

import "time"

// TransferConfig holds the complete configuration for a transfer run.
type TransferConfig struct {
	Source      ConnectionConfig
	Destination ConnectionConfig
	Probe       ProbeSettings
	Transfer    TransferSettings
	WOL         *WOLConfig         // nil if not configured
	SSHShutdown *SSHShutdownConfig // nil if not configured
	Telegram    *TelegramConfig    // nil if not configured
}

// ConnectionConfig identifies one PostgreSQL server and the credentials
// used to reach it. Immutable after parsing.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// ProbeSettings controls the availability polling loop.
type ProbeSettings struct {
	MaxRetries int
	Delay      time.Duration
}

// TransferSettings holds transfer-specific settings.
type TransferSettings struct {
	WorkDir string // directory the dump artifact is written to
}
