package server

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ganesh47/cf-metadata-sys/internal/authz"
)

//go:embed routes.yaml
var routesYAML []byte

type routeTableEntry struct {
	Pattern string            `yaml:"pattern"`
	Methods map[string]string `yaml:"methods"`
}

type routeTableFile struct {
	Routes []routeTableEntry `yaml:"routes"`
}

// routeTable holds, per pattern+method, the permission level required
// to invoke it (spec §6.1). It is parsed once at startup from the
// embedded declarative route table.
type routeTable struct {
	entries []routeTableEntry
}

func loadRouteTable() (*routeTable, error) {
	var f routeTableFile
	if err := yaml.Unmarshal(routesYAML, &f); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}
	return &routeTable{entries: f.Routes}, nil
}

// levelFor returns the required authz.Level for pattern+method, parsed
// from the embedded route table.
func (rt *routeTable) levelFor(pattern, method string) (authz.Level, error) {
	for _, e := range rt.entries {
		if e.Pattern != pattern {
			continue
		}
		levelStr, ok := e.Methods[strings.ToUpper(method)]
		if !ok {
			return authz.LevelNone, fmt.Errorf("route table: %s %s has no declared level", method, pattern)
		}
		switch strings.ToLower(levelStr) {
		case "read":
			return authz.LevelRead, nil
		case "write":
			return authz.LevelWrite, nil
		case "audit":
			return authz.LevelAudit, nil
		default:
			return authz.LevelNone, fmt.Errorf("route table: unknown level %q for %s %s", levelStr, method, pattern)
		}
	}
	return authz.LevelNone, fmt.Errorf("route table: no entry for pattern %q", pattern)
}
