package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a transfer notification.
type TelegramMessage struct {
	Success         bool
	SourceHost      string
	DestinationHost string
	Database        string
	StartTime       time.Time
	Duration        time.Duration

	// Transfer stats (if the dump stage ran).
	DumpSizeBytes int64
	ArtifactPath  string

	// Error info (if failed).
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
