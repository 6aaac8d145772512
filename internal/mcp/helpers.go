package mcpserver

import (
	"fmt"
	"strings"

	"blockgrid/internal/domain"
)

// parseZone maps a tool argument to a drop zone. Only droppable zones are
// accepted.
func parseZone(s string) (domain.Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "before", "above":
		return domain.ZoneBefore, nil
	case "after", "below":
		return domain.ZoneAfter, nil
	case "left":
		return domain.ZoneLeft, nil
	case "right":
		return domain.ZoneRight, nil
	}
	return domain.ZoneNone, fmt.Errorf("zone must be one of before, after, left, right; got %q", s)
}

// requireString returns args[key] or an error naming it.
func requireString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
