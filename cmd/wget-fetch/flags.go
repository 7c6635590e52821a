package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/vertextoedge/wget-fetch/pkg/fetch"
)

func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

// parseHeaders accepts "Name: value" and "name=value" forms
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		i := strings.IndexAny(h, ":=")
		if i < 0 {
			return nil, fmt.Errorf("invalid header %q: want name=value or 'Name: value'", h)
		}
		name, value := strings.TrimSpace(h[:i]), h[i+1:]
		if name == "" {
			return nil, fmt.Errorf("invalid header %q: want name=value or 'Name: value'", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parseChecksum parses "algorithm:hex"
func parseChecksum(raw string) (*fetch.Checksum, error) {
	if raw == "" {
		return nil, nil
	}
	algo, sum, ok := strings.Cut(raw, ":")
	if !ok || algo == "" || sum == "" {
		return nil, fmt.Errorf("invalid checksum %q: want algorithm:hex", raw)
	}
	return &fetch.Checksum{Algorithm: algo, Expected: sum}, nil
}
