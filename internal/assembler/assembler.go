package assembler

import (
	"log/slog"
	"sort"

	"github.com/Zachacious/go-slsdoc/internal/config"
	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIVersion is the version every generated document declares.
const OpenAPIVersion = "3.0.3"

const (
	GeneralResponseName = "GeneralResponse"
	ErrorResponseName   = "ErrorResponse"
)

// BuildSpec wraps the merged paths into a complete document. The document
// always carries exactly one server and the shared GeneralResponse and
// ErrorResponse components. Every security scheme referenced by an
// operation is declared; schemes without an override in the configuration
// are declared as an API key in the Authorization header.
func BuildSpec(paths *openapi3.Paths, opts config.DocOptions, schemes map[string]config.SecuritySchemeConfig) *openapi3.T {
	opts = opts.WithDefaults()
	if paths == nil {
		paths = openapi3.NewPaths()
	}

	info := &openapi3.Info{
		Title:          opts.Title,
		Description:    opts.Description,
		TermsOfService: opts.TermsOfService,
		Version:        opts.Version,
	}
	if opts.Contact != nil {
		info.Contact = &openapi3.Contact{
			Name:  opts.Contact.Name,
			URL:   opts.Contact.URL,
			Email: opts.Contact.Email,
		}
	}

	spec := &openapi3.T{
		OpenAPI: OpenAPIVersion,
		Info:    info,
		Servers: openapi3.Servers{{URL: opts.ServerURL, Description: opts.ServerName}},
		Paths:   paths,
		Components: &openapi3.Components{
			Responses: openapi3.ResponseBodies{
				GeneralResponseName: {Value: generalResponse()},
				ErrorResponseName:   {Value: errorResponse()},
			},
		},
	}

	used := usedSecuritySchemes(paths)
	if len(used) > 0 {
		spec.Components.SecuritySchemes = make(openapi3.SecuritySchemes, len(used))
		for _, name := range used {
			override, ok := schemes[name]
			if !ok {
				slog.Debug("declaring default security scheme", "scheme", name)
			}
			spec.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{Value: securityScheme(override)}
		}
	}
	return spec
}

func generalResponse() *openapi3.Response {
	return openapi3.NewResponse().
		WithDescription("General Response Object").
		WithContent(openapi3.Content{jsonMediaType: openapi3.NewMediaType().WithSchema(openapi3.NewObjectSchema())})
}

func errorResponse() *openapi3.Response {
	return openapi3.NewResponse().
		WithDescription("Error Object").
		WithContent(openapi3.Content{jsonMediaType: openapi3.NewMediaType().WithSchema(errorBodySchema())})
}

// errorBodySchema describes the body every failing handler returns.
func errorBodySchema() *openapi3.Schema {
	message := openapi3.NewStringSchema()
	message.Example = "Something went wrong"
	errType := openapi3.NewStringSchema()
	errType.Example = DefaultErrorType

	return openapi3.NewObjectSchema().
		WithProperty("errorMessage", message).
		WithProperty("errorType", errType).
		WithProperty("stackTrace", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
}

// securityScheme applies an override over the apiKey/header/Authorization
// default. Fields left empty in the override keep their default.
func securityScheme(c config.SecuritySchemeConfig) *openapi3.SecurityScheme {
	scheme := openapi3.NewSecurityScheme()
	if c.Type == "" || c.Type == "apiKey" {
		scheme = scheme.WithType("apiKey").WithIn("header").WithName("Authorization")
		if c.In != "" {
			scheme = scheme.WithIn(c.In)
		}
		if c.Name != "" {
			scheme = scheme.WithName(c.Name)
		}
	} else {
		scheme = scheme.WithType(c.Type)
		if c.Scheme != "" {
			scheme = scheme.WithScheme(c.Scheme)
		}
		if c.BearerFormat != "" {
			scheme = scheme.WithBearerFormat(c.BearerFormat)
		}
	}
	if c.Description != "" {
		scheme = scheme.WithDescription(c.Description)
	}
	return scheme
}

// usedSecuritySchemes lists, sorted, every scheme name an operation requires.
func usedSecuritySchemes(paths *openapi3.Paths) []string {
	seen := map[string]bool{}
	for _, item := range paths.Map() {
		for _, op := range item.Operations() {
			if op.Security == nil {
				continue
			}
			for _, req := range *op.Security {
				for name := range req {
					seen[name] = true
				}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
