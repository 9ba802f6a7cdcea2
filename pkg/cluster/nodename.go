package cluster

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatNodeName builds the cluster node name for a discovered service
// instance: {prefix}-{port}@{host}.
func FormatNodeName(prefix string, port uint16, host string) string {
	return fmt.Sprintf("%s-%d@%s", prefix, port, host)
}

// ParseNodeName splits a {prefix}-{port}@{host} node name into its
// parts.
func ParseNodeName(name string) (prefix string, port uint16, host string, err error) {
	short, host, ok := strings.Cut(name, "@")
	if !ok || host == "" {
		return "", 0, "", fmt.Errorf("%w: %q", ErrInvalidNodeName, name)
	}

	idx := strings.LastIndex(short, "-")
	if idx <= 0 || idx == len(short)-1 {
		return "", 0, "", fmt.Errorf("%w: %q", ErrInvalidNodeName, name)
	}

	p, err := strconv.ParseUint(short[idx+1:], 10, 16)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: %q", ErrInvalidNodeName, name)
	}

	return short[:idx], uint16(p), host, nil
}
