// Package manifest reads the HTTP-triggered functions out of a serverless
// manifest. Only the domain shape is interpreted: functions.*.handler and
// functions.*.events[].http (or httpApi).
package manifest

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	apperrors "github.com/Zachacious/go-slsdoc/internal/errors"
	"github.com/Zachacious/go-slsdoc/internal/model"
	"gopkg.in/yaml.v3"
)

// MethodAny is the serverless wildcard method.
const MethodAny = "ANY"

var httpEventKeys = []string{"http", "httpApi"}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	MethodAny:          true,
}

type document struct {
	Functions yaml.Node `yaml:"functions"`
}

type functionEntry struct {
	Handler string    `yaml:"handler"`
	Events  yaml.Node `yaml:"events"`
}

type httpEvent struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
}

// Load reads and parses the manifest at path.
func Load(path string) ([]model.FunctionDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Attr(
			apperrors.Wrap(err, apperrors.KindManifestParse, "read manifest"),
			"file", path)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, apperrors.Attr(err, "file", path)
	}
	return defs, nil
}

// Parse converts manifest content into function definitions, in document
// order. Entries without an events sequence are not HTTP-triggered and are
// skipped.
func Parse(data []byte) ([]model.FunctionDefinition, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindManifestParse, "manifest is not valid YAML")
	}

	fns := resolve(&doc.Functions)
	if fns.Kind == 0 || (fns.Kind == yaml.ScalarNode && fns.Tag == "!!null") {
		return nil, apperrors.New(apperrors.KindManifestParse, "manifest has no functions collection")
	}
	if fns.Kind != yaml.MappingNode {
		return nil, apperrors.Errorf(apperrors.KindManifestParse, "functions must be a mapping (line %d)", fns.Line)
	}

	var defs []model.FunctionDefinition
	for i := 0; i+1 < len(fns.Content); i += 2 {
		name := fns.Content[i].Value
		def, ok, err := parseFunction(name, fns.Content[i+1])
		if err != nil {
			return nil, apperrors.Attr(err, "function", name)
		}
		if !ok {
			slog.Debug("skipping function without events", "function", name)
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseFunction(name string, node *yaml.Node) (model.FunctionDefinition, bool, error) {
	var entry functionEntry
	node = resolve(node)
	if node.Kind != yaml.MappingNode {
		return model.FunctionDefinition{}, false, nil
	}
	if err := node.Decode(&entry); err != nil {
		return model.FunctionDefinition{}, false, apperrors.Wrapf(err, apperrors.KindManifestParse, "function %q", name)
	}
	events := resolve(&entry.Events)
	if events.Kind != yaml.SequenceNode {
		return model.FunctionDefinition{}, false, nil
	}

	def := model.FunctionDefinition{
		Name:    name,
		Handler: model.ParseHandlerRef(entry.Handler),
		Routes:  []model.RouteBinding{},
	}
	for _, event := range events.Content {
		route, ok, err := parseEvent(event)
		if err != nil {
			return model.FunctionDefinition{}, false, apperrors.Wrapf(err, apperrors.KindManifestParse,
				"function %q event at line %d", name, event.Line)
		}
		if ok {
			def.Routes = append(def.Routes, route)
		}
	}
	return def, true, nil
}

// parseEvent extracts the route of an http/httpApi trigger. Other triggers
// report ok=false.
func parseEvent(node *yaml.Node) (model.RouteBinding, bool, error) {
	node = resolve(node)
	if node.Kind != yaml.MappingNode {
		return model.RouteBinding{}, false, nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, resolve(node.Content[i+1])
		if !isHTTPEventKey(key) {
			continue
		}
		if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
			slog.Debug("skipping empty http trigger", "line", value.Line)
			return model.RouteBinding{}, false, nil
		}
		route, err := decodeHTTPEvent(value)
		if err != nil {
			return model.RouteBinding{}, false, err
		}
		return route, true, nil
	}
	return model.RouteBinding{}, false, nil
}

// resolve follows aliases to the anchored node.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isHTTPEventKey(key string) bool {
	for _, k := range httpEventKeys {
		if k == key {
			return true
		}
	}
	return false
}

func decodeHTTPEvent(node *yaml.Node) (model.RouteBinding, error) {
	var ev httpEvent
	switch node.Kind {
	case yaml.ScalarNode:
		// "GET users/{id}" shorthand
		parts := strings.Fields(node.Value)
		if len(parts) != 2 {
			return model.RouteBinding{}, apperrors.Errorf(apperrors.KindManifestParse,
				"http shorthand %q must be \"METHOD path\"", node.Value)
		}
		ev.Method, ev.Path = parts[0], parts[1]
	case yaml.MappingNode:
		if err := node.Decode(&ev); err != nil {
			return model.RouteBinding{}, err
		}
	default:
		return model.RouteBinding{}, apperrors.New(apperrors.KindManifestParse, "http trigger must be a mapping or string")
	}

	method := strings.ToUpper(strings.TrimSpace(ev.Method))
	if method == "*" {
		method = MethodAny
	}
	if method == "" || ev.Path == "" {
		return model.RouteBinding{}, apperrors.New(apperrors.KindManifestParse, "http trigger requires method and path")
	}
	if !knownMethods[method] {
		return model.RouteBinding{}, apperrors.Errorf(apperrors.KindManifestParse, "unsupported http method %q", ev.Method)
	}
	return model.RouteBinding{Method: method, Path: ev.Path}, nil
}
