package models

import "time"

// WOLConfig holds Wake-on-LAN configuration for the source host.
// Readiness is not polled here; the availability prober takes over once
// the packet has been sent.
type WOLConfig struct {
	MACAddress  string
	BroadcastIP string
	BootWait    time.Duration // grace period before probing starts
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent bool
	Error      error
}
