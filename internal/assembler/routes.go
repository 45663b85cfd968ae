package assembler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/Zachacious/go-slsdoc/internal/errors"
	"github.com/Zachacious/go-slsdoc/internal/manifest"
	"github.com/Zachacious/go-slsdoc/internal/model"
	"github.com/getkin/kin-openapi/openapi3"
)

const (
	GeneralResponseRef = "#/components/responses/GeneralResponse"
	ErrorResponseRef   = "#/components/responses/ErrorResponse"

	DefaultDescription        = "No description"
	DefaultSuccessStatus      = "2XX"
	DefaultSuccessDescription = "Success"
	DefaultErrorType          = "BasicError"
	jsonMediaType             = "application/json"
)

// Shorthand keys are expanded into responses/security and never emitted.
const (
	keySuccess       = "success"
	keyFailure       = "failure"
	keyAuthorization = "authorization"
)

// operationKeys are the Operation Object fields a fragment may set directly.
var operationKeys = map[string]bool{
	"tags": true, "summary": true, "description": true, "operationId": true,
	"parameters": true, "requestBody": true, "responses": true, "callbacks": true,
	"deprecated": true, "security": true, "servers": true, "externalDocs": true,
}

// anyMethods is what a serverless "any" trigger expands to.
var anyMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodHead, http.MethodOptions,
}

var supportedMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true, http.MethodPatch: true,
	http.MethodDelete: true, http.MethodHead: true, http.MethodOptions: true, http.MethodTrace: true,
}

var pathParamPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// MergeRoutes builds the paths object: one operation per (path, method) of
// every route binding, documented from the handler's fragment or defaults.
// Routes are processed in manifest order and the first operation registered
// for a (path, method) pair wins.
func MergeRoutes(defs []model.FunctionDefinition, docs model.DocIndex) (*openapi3.Paths, error) {
	paths := openapi3.NewPathsWithCapacity(len(defs))

	for _, def := range defs {
		fragment := docs.Lookup(def.Handler)
		baseID := def.Handler.OperationName()
		if def.Handler.IsZero() {
			baseID = def.Name
		}

		for _, route := range def.Routes {
			path := NormalizePath(route.Path)
			method := strings.ToUpper(route.Method)
			methods := []string{method}
			if method == manifest.MethodAny {
				methods = anyMethods
			} else if !supportedMethods[method] {
				err := apperrors.Errorf(apperrors.KindManifestParse, "unsupported http method %q", route.Method)
				return nil, apperrors.Attr(err, "function", def.Name)
			}

			pathItem := paths.Value(path)
			if pathItem == nil {
				pathItem = &openapi3.PathItem{}
				paths.Set(path, pathItem)
			}

			for _, method := range methods {
				if pathItem.GetOperation(method) != nil {
					slog.Warn("route already documented, keeping the first definition",
						"path", path, "method", method, "function", def.Name)
					continue
				}

				opID := baseID
				if len(methods) > 1 {
					opID = baseID + "_" + strings.ToLower(method)
				}
				op, err := buildOperation(fragment, opID, path)
				if err != nil {
					err = apperrors.Attr(err, "function", def.Name)
					return nil, apperrors.Attr(err, "handler", def.Handler.String())
				}
				pathItem.SetOperation(method, op)
				slog.Debug("documented route", "method", method, "path", path, "operationId", op.OperationID)
			}
		}
	}
	return paths, nil
}

// NormalizePath guarantees a leading slash.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// buildOperation turns a fragment into an Operation Object. The fragment is
// only read; every call returns an independent operation.
func buildOperation(fragment model.AnnotationFragment, opID, path string) (*openapi3.Operation, error) {
	op := openapi3.NewOperation()

	base := make(map[string]any, len(fragment))
	for k, v := range fragment {
		switch {
		case k == keySuccess || k == keyFailure || k == keyAuthorization:
		case operationKeys[k] || strings.HasPrefix(k, "x-"):
			base[k] = v
		default:
			slog.Debug("dropping unknown @apidoc key", "key", k, "operationId", opID)
		}
	}
	if len(base) > 0 {
		data, err := json.Marshal(base)
		if err == nil {
			err = op.UnmarshalJSON(data)
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.KindAnnotationParse, "@apidoc fields do not form a valid operation")
		}
	}

	if op.Description == "" {
		op.Description = DefaultDescription
	}
	if op.Summary == "" {
		op.Summary = op.Description
	}
	if op.OperationID == "" {
		op.OperationID = opID
	}
	if op.Responses == nil {
		op.Responses = openapi3.NewResponsesWithCapacity(2)
	}

	if raw, ok := fragment[keySuccess]; ok {
		if status, resp, ok := successResponse(raw); ok {
			op.Responses.Set(status, &openapi3.ResponseRef{Value: resp})
		} else {
			slog.Warn("malformed success shorthand, using GeneralResponse", "operationId", op.OperationID)
		}
	}
	if raw, ok := fragment[keyFailure]; ok {
		if failures, ok := failureResponses(raw); ok {
			for _, status := range sortedKeys(failures) {
				op.Responses.Set(status, &openapi3.ResponseRef{Value: failures[status]})
			}
		} else {
			slog.Warn("malformed failure shorthand, using ErrorResponse", "operationId", op.OperationID)
		}
	}

	if !hasStatusClass(op.Responses, isSuccessStatus) {
		op.Responses.Set(DefaultSuccessStatus, &openapi3.ResponseRef{Ref: GeneralResponseRef})
	}
	if !hasStatusClass(op.Responses, isErrorStatus) {
		op.Responses.Set("500", &openapi3.ResponseRef{Ref: ErrorResponseRef})
	}

	if raw, ok := fragment[keyAuthorization]; ok {
		if schemes, ok := authorizationSchemes(raw); ok {
			req := openapi3.NewSecurityRequirement()
			for _, name := range schemes {
				req.Authenticate(name)
			}
			op.Security = openapi3.NewSecurityRequirements().With(req)
		} else {
			slog.Warn("malformed authorization shorthand, route left unauthenticated", "operationId", op.OperationID)
		}
	}

	addPathParameters(op, path)
	return op, nil
}

// successResponse expands {status?, description?, schema?}.
func successResponse(raw any) (string, *openapi3.Response, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return "", nil, false
	}

	status := DefaultSuccessStatus
	if v, ok := m["status"]; ok {
		s, ok := scalarString(v)
		if !ok || s == "" {
			return "", nil, false
		}
		status = s
	}
	description := DefaultSuccessDescription
	if v, ok := m["description"]; ok {
		s, ok := v.(string)
		if !ok {
			return "", nil, false
		}
		description = s
	}

	schema := &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	if v, ok := m["schema"]; ok {
		ref, err := decodeSchema(v)
		if err != nil {
			return "", nil, false
		}
		schema = ref
	}

	resp := openapi3.NewResponse().
		WithDescription(description).
		WithContent(openapi3.Content{jsonMediaType: openapi3.NewMediaType().WithSchemaRef(schema)})
	return status, resp, true
}

// failureResponses expands {code: {description?, message?, type?}} into
// error responses carrying an example error body.
func failureResponses(raw any) (map[string]*openapi3.Response, bool) {
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}

	out := make(map[string]*openapi3.Response, len(m))
	for status, v := range m {
		entry := map[string]any{}
		if v != nil {
			entry, ok = v.(map[string]any)
			if !ok {
				return nil, false
			}
		}

		errType := DefaultErrorType
		if s, ok := entry["type"].(string); ok && s != "" {
			errType = s
		}
		message := fmt.Sprintf("[%s] %s", status, errType)
		if s, ok := entry["message"].(string); ok && s != "" {
			message = s
		}
		description := statusDescription(status)
		if s, ok := entry["description"].(string); ok && s != "" {
			description = s
		}

		media := openapi3.NewMediaType().WithSchema(errorBodySchema())
		media.Example = map[string]any{"errorMessage": message, "errorType": errType}
		out[status] = openapi3.NewResponse().
			WithDescription(description).
			WithContent(openapi3.Content{jsonMediaType: media})
	}
	return out, true
}

// authorizationSchemes accepts a scheme name or a list of names.
func authorizationSchemes(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, false
		}
		return []string{v}, true
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok || s == "" {
				return nil, false
			}
			names = append(names, s)
		}
		return names, len(names) > 0
	}
	return nil, false
}

func decodeSchema(v any) (*openapi3.SchemaRef, error) {
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("schema must be a mapping, got %T", v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	ref := &openapi3.SchemaRef{}
	if err := json.Unmarshal(data, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// addPathParameters declares {name} segments the fragment did not declare.
func addPathParameters(op *openapi3.Operation, path string) {
	for _, match := range pathParamPattern.FindAllStringSubmatch(path, -1) {
		name := match[1]
		declared := false
		for _, p := range op.Parameters {
			if p.Value != nil && p.Value.In == openapi3.ParameterInPath && p.Value.Name == name {
				declared = true
				break
			}
		}
		if !declared {
			op.AddParameter(openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()))
		}
	}
}

func hasStatusClass(responses *openapi3.Responses, match func(string) bool) bool {
	for status := range responses.Map() {
		if match(status) {
			return true
		}
	}
	return false
}

func isSuccessStatus(status string) bool {
	return status != "" && (status[0] == '1' || status[0] == '2' || status[0] == '3')
}

func isErrorStatus(status string) bool {
	return status == "default" || (status != "" && (status[0] == '4' || status[0] == '5'))
}

func statusDescription(status string) string {
	var code int
	if _, err := fmt.Sscanf(status, "%d", &code); err == nil {
		if text := http.StatusText(code); text != "" {
			return text
		}
	}
	return "Error"
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case int, int64, uint64, float64:
		return fmt.Sprint(s), true
	}
	return "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
