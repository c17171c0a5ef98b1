package cli

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/lineprof/log"
)

// resolve returns a [kong.ConfigurationLoader] that reads flag values from
// the mapping named name in a YAML config file.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve("config"), "/path/to/config.yaml")
//
// Keys are flag names. Hyphens may be written as underscores:
//
//	config:
//	  log-level: debug
//	  log_format: text
//	  indent: 4
//
// This configuration is applied to kong flags as:
//
//	--log-level=debug
//	--log-format=text
//	--indent=4
//
// Command-line flags override config file values. A file that cannot be
// parsed, or that has no mapping named name, resolves nothing.
func resolve(name string) func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			log.Debug("ignoring config file",
				slog.String("namespace", name),
				slog.Any("error", err))

			return config{}, nil
		}

		ns, ok := doc[name].(map[string]any)
		if !ok {
			return config{}, nil
		}

		cfg := make(config, len(ns))
		for key, val := range ns {
			cfg[key] = scalar(val)
		}

		return cfg, nil
	}
}

// scalar converts a decoded YAML value to a form kong can parse.
// Kong requires numbers as strings.
func scalar(v any) any {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)

	case int64:
		return strconv.FormatInt(v, 10)

	case uint64:
		return strconv.FormatUint(v, 10)

	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = scalar(e)
		}

		return out

	default:
		return v
	}
}

// config implements [kong.Resolver] over a flat map of flag values.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil //nolint:nilnil
}
