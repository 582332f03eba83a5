// Package util provides utility functions for the application.
package util

import (
	"fmt"
	"io"
)

// BuildInfo holds values injected with -ldflags at build time.
type BuildInfo struct {
	Version string
	Date    string
	Commit  string
}

// na returns "N/A" if the input string is empty, otherwise it returns the input string.
func na(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// WriteTo prints the build metadata, one field per line.
func (b BuildInfo) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "Build version: %s\nBuild date: %s\nBuild commit: %s\n",
		na(b.Version), na(b.Date), na(b.Commit))
	return int64(n), err
}

// UserAgent formats a User-Agent value such as "telemetra-agent/1.2.0".
// Unversioned builds report "dev".
func (b BuildInfo) UserAgent(product string) string {
	v := b.Version
	if v == "" {
		v = "dev"
	}
	return product + "/" + v
}
