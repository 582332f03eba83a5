package misc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration accepts a plain number of seconds or Go duration syntax.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

// ParseBool understands the usual yes/no spellings.
func ParseBool(v string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, true
	case "0", "false", "f", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
