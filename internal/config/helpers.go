package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/Telemetra/internal/misc"
)

// resolver merges environment variables and explicitly set flags of one FlagSet.
// With envFirst the environment wins, otherwise the command line does.
type resolver struct {
	set      map[string]bool
	envFirst bool
}

func newResolver(fs *flag.FlagSet, envFirst bool) resolver {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return resolver{set: set, envFirst: envFirst}
}

// pick returns the raw winning value, or "" when neither source provided one.
func (r resolver) pick(envKey, flagName, flagVal string) string {
	env := strings.TrimSpace(os.Getenv(envKey))
	cli := ""
	if r.set[flagName] {
		cli = strings.TrimSpace(flagVal)
	}
	if r.envFirst {
		if env != "" {
			return env
		}
		return cli
	}
	if cli != "" {
		return cli
	}
	return env
}

func (r resolver) str(envKey, flagName, flagVal, def string) string {
	if v := r.pick(envKey, flagName, flagVal); v != "" {
		return v
	}
	return def
}

func (r resolver) boolean(envKey, flagName string, flagVal, def bool) (bool, error) {
	v := r.pick(envKey, flagName, strconv.FormatBool(flagVal))
	if v == "" {
		return def, nil
	}
	b, ok := misc.ParseBool(v)
	if !ok {
		return def, fmt.Errorf("invalid %s: %q", envKey, v)
	}
	return b, nil
}

func (r resolver) integer(envKey, flagName string, flagVal, def int) (int, error) {
	v := r.pick(envKey, flagName, strconv.Itoa(flagVal))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %q", envKey, v)
	}
	return n, nil
}

func (r resolver) duration(envKey, flagName, flagVal string, def time.Duration) (time.Duration, error) {
	v := r.pick(envKey, flagName, flagVal)
	if v == "" {
		return def, nil
	}
	d, err := misc.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", envKey, err)
	}
	return d, nil
}
