package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/Zachacious/go-slsdoc/internal/errors"
	"github.com/Zachacious/go-slsdoc/internal/model"
	"gopkg.in/yaml.v3"
)

// APIDocTag introduces the embedded fragment inside a doc comment.
const APIDocTag = "@apidoc"

var apiDocOpen = regexp.MustCompile(`@apidoc[ \t]*\[`)

// ParseAPIDoc extracts the @apidoc [ ... ] fragment from a doc comment body.
// It reports found=false when the comment carries no tag; that is the normal
// state of an undocumented handler. A tag whose body is not a YAML mapping
// is a KindAnnotationParse error.
func ParseAPIDoc(comment string) (model.AnnotationFragment, bool, error) {
	if !strings.Contains(comment, APIDocTag) {
		return nil, false, nil
	}

	loc := apiDocOpen.FindStringIndex(comment)
	if loc == nil {
		return nil, true, apperrors.New(apperrors.KindAnnotationParse, "@apidoc tag is not followed by '['")
	}
	closing := strings.LastIndex(comment, "]")
	if closing < loc[1] {
		return nil, true, apperrors.New(apperrors.KindAnnotationParse, "@apidoc fragment is missing its closing ']'")
	}

	body := stripContinuation(comment[loc[1]:closing])
	if strings.TrimSpace(body) == "" {
		return model.AnnotationFragment{}, true, nil
	}

	var raw any
	if err := yaml.Unmarshal([]byte(body), &raw); err != nil {
		return nil, true, apperrors.Wrap(err, apperrors.KindAnnotationParse, "@apidoc fragment is not valid YAML")
	}
	fragment, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, true, apperrors.Errorf(apperrors.KindAnnotationParse, "@apidoc fragment must be a mapping, got %T", raw)
	}
	return fragment, true, nil
}

// stripContinuation removes the leading " * " comment-continuation marker
// from every line and then the indentation common to all non-blank lines.
func stripContinuation(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "*") {
			line = trimmed[1:]
		}
		lines[i] = line
	}

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, line := range lines {
			if len(line) >= indent {
				lines[i] = line[indent:]
			} else {
				lines[i] = strings.TrimLeft(line, " ")
			}
		}
	}
	return strings.Join(lines, "\n")
}

// normalize converts YAML-decoded values into JSON-compatible ones:
// mappings with non-string keys (e.g. status codes) become map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
