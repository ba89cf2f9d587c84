// Copyright 2024 The cable Authors
// This file is part of the cable library.
//
// The cable library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The cable library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the cable library. If not, see <http://www.gnu.org/licenses/>.

// Package config collects the tunables a running cabled node needs, with
// the same "package-level DefaultConfig plus a constructor" shape the
// teacher's own node package uses for its defaults.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

const (
	// DefaultListenAddr is the TCP address cabled listens for peers on.
	DefaultListenAddr = ":8008"

	// DefaultMetricsAddr serves Prometheus scrapes when metrics are enabled.
	DefaultMetricsAddr = "localhost:9008"
)

// Config collects every tunable the session manager and its surrounding
// CLI need. Zero values are never used directly; callers start from
// DefaultConfig and override individual fields. Only HandledCacheSize and
// Verbosity are read, as the defaults of cabled's flags; MaxTTL,
// QueueCapacity and MaxResultLimit hold the same values as the constants
// the message and session packages use, and changing them does not change
// those constants.
type Config struct {
	DataDir string

	ListenAddr   string
	MetricsAddr  string
	MetricsEnabled bool

	// MaxTTL bounds the TTL field accepted from the wire; higher values
	// are clamped down to it.
	MaxTTL uint64

	// QueueCapacity bounds each peer's outbound message queue.
	QueueCapacity int

	// MaxResultLimit bounds every hash/channel response list the
	// dispatcher produces, regardless of what a peer requested.
	MaxResultLimit uint64

	// HandledCacheSize bounds the LRU backing handled_requests.
	HandledCacheSize int

	// Verbosity is the log verbosity level (0 silent, 5 trace).
	Verbosity int
}

// DefaultConfig contains reasonable default settings for a standalone
// cabled node.
var DefaultConfig = Config{
	DataDir:          DefaultDataDir(),
	ListenAddr:       DefaultListenAddr,
	MetricsAddr:      DefaultMetricsAddr,
	MetricsEnabled:   false,
	MaxTTL:           16,
	QueueCapacity:    100,
	MaxResultLimit:   4096,
	HandledCacheSize: 65536,
	Verbosity:        3,
}

// DefaultDataDir picks a platform-appropriate directory for node state. No
// package in this module reads or writes it; memstore keeps the signing
// keypair in memory.
func DefaultDataDir() string {
	home := homeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Cable")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Cable")
	default:
		return filepath.Join(home, ".cable")
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
