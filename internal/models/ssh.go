package models

// SSHShutdownConfig holds configuration for shutting down the source host
// over SSH once the transfer has completed.
type SSHShutdownConfig struct {
	Host          string
	Port          int
	Username      string
	PrivateKey    []byte // loaded from KeyPath
	KeyPath       string
	ShutdownDelay int // minutes before the host powers off
}

// SSHResult holds the result of an SSH shutdown attempt.
type SSHResult struct {
	CommandRun bool
	Output     string
	Error      error
}
