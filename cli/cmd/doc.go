// Package cmd implements the lineprof subcommands.
package cmd

import (
	"slices"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/lineprof/clock"
)

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file.
	ConfigIdentifier = "config"
)

// Vars returns the kong variables referenced by the command flags.
func Vars() kong.Vars {
	return kong.Vars{
		"clockEnum":    strings.Join(append([]string{clockAuto}, slices.Collect(clock.Kinds())...), ","),
		"clockDefault": clockAuto,
		"formatEnum":   strings.Join(formats, ","),
	}
}
