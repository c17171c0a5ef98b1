package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/lineprof/log"
	"github.com/ardnew/lineprof/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// configNamespace is the top-level mapping of the configuration file.
const configNamespace = "config"

// Init generates a default configuration file with current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	// Check if file exists and force not set
	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	data, err := yaml.MarshalContext(ctx,
		yaml.MapSlice{{Key: configNamespace, Value: buildConfig(ktx)}},
		yaml.Indent(defaultConfigIndent),
	)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	if err := os.WriteFile(confPath, data, 0o600); err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// buildConfig collects the value of every flag of every command, sorted by
// flag name. Flags that share a name across commands appear once.
func buildConfig(ktx *kong.Context) yaml.MapSlice {
	prefixIgnore := []string{"help", "version", "force", profile.Tag}

	seen := make(map[string]bool)

	var config yaml.MapSlice

	var walk func(*kong.Node)

	walk = func(node *kong.Node) {
		for _, flag := range node.Flags {
			if flag.Hidden || seen[flag.Name] ||
				slices.ContainsFunc(prefixIgnore, func(s string) bool {
					return strings.HasPrefix(flag.Name, s)
				}) {
				continue
			}

			seen[flag.Name] = true

			if val := flagValue(ktx.FlagValue(flag)); val != nil {
				config = append(config, yaml.MapItem{Key: flag.Name, Value: val})
			}
		}

		for _, child := range node.Children {
			walk(child)
		}
	}

	walk(ktx.Model.Node)

	slices.SortFunc(config, func(a, b yaml.MapItem) int {
		return strings.Compare(a.Key.(string), b.Key.(string)) //nolint:forcetypeassert
	})

	return config
}

// flagValue returns the configuration value of a flag, or nil if it is
// unset.
func flagValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil

	case string:
		if v == "" {
			return nil
		}

		return v

	case []string:
		if len(v) == 0 {
			return nil
		}

		return v

	case bool, int, int64, uint, uint64, float64:
		return v

	default:
		if s := fmt.Sprint(v); s != "" {
			return s
		}

		return nil
	}
}
