package transfer

import (
	"fmt"
	"strings"
)

// Mode selects which sides a transfer writes to.
type Mode int

const (
	// ModeSync moves files both ways; Direction decides who wins a conflict.
	ModeSync Mode = iota
	// ModeUpload only writes to the cloud.
	ModeUpload
	// ModeDownload only writes to the local directory.
	ModeDownload
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeUpload:
		return "upload"
	case ModeDownload:
		return "download"
	default:
		return "unknown"
	}
}

// ParseMode parses a string into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "sync", "":
		return ModeSync, nil
	case "upload", "up":
		return ModeUpload, nil
	case "download", "down":
		return ModeDownload, nil
	default:
		return ModeSync, fmt.Errorf("invalid mode: %s (valid: sync, upload, download)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// Direction says which copy wins when a file exists on both sides with
// different content.
type Direction int

const (
	// ReplaceRemote keeps the local copy and uploads it.
	ReplaceRemote Direction = iota
	// ReplaceLocal keeps the cloud copy and downloads it.
	ReplaceLocal
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case ReplaceRemote:
		return "local"
	case ReplaceLocal:
		return "remote"
	default:
		return "unknown"
	}
}

// ParseDirection parses "local" (local wins) or "remote" (cloud wins).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "local", "replace-remote", "":
		return ReplaceRemote, nil
	case "remote", "cloud", "replace-local":
		return ReplaceLocal, nil
	default:
		return ReplaceRemote, fmt.Errorf("invalid preference: %s (valid: local, remote)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// Action is what happens to one file.
type Action int

const (
	ActionUpload Action = iota
	ActionDownload
)

func (a Action) String() string {
	if a == ActionDownload {
		return "download"
	}

	return "upload"
}
