package assembler

import (
	"net/http"
	"testing"

	apperrors "github.com/Zachacious/go-slsdoc/internal/errors"
	"github.com/Zachacious/go-slsdoc/internal/model"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func def(name, handler string, routes ...model.RouteBinding) model.FunctionDefinition {
	return model.FunctionDefinition{Name: name, Handler: model.ParseHandlerRef(handler), Routes: routes}
}

func route(method, path string) model.RouteBinding {
	return model.RouteBinding{Method: method, Path: path}
}

func operation(t *testing.T, paths *openapi3.Paths, path, method string) *openapi3.Operation {
	t.Helper()
	item := paths.Value(path)
	require.NotNil(t, item, "path %s", path)
	op := item.GetOperation(method)
	require.NotNil(t, op, "%s %s", method, path)
	return op
}

func TestMergeRoutesSuccessShorthand(t *testing.T) {
	docs := model.DocIndex{"handlers/user": {"getUser": {
		"description": "Fetch a user",
		"success": map[string]any{
			"status":      "200",
			"description": "User fetched",
			"schema":      map[string]any{"type": "object"},
		},
	}}}
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("getUser", "handlers/user.getUser", route(http.MethodGet, "/users/{id}")),
	}, docs)
	require.NoError(t, err)

	op := operation(t, paths, "/users/{id}", http.MethodGet)
	assert.Equal(t, "user.getUser", op.OperationID)
	assert.Equal(t, "Fetch a user", op.Description)
	assert.Equal(t, "Fetch a user", op.Summary)

	ok := op.Responses.Value("200")
	require.NotNil(t, ok)
	require.NotNil(t, ok.Value)
	assert.Equal(t, "User fetched", *ok.Value.Description)
	schema := ok.Value.Content.Get("application/json").Schema.Value
	assert.True(t, schema.Type.Is("object"))

	assert.Nil(t, op.Responses.Value(DefaultSuccessStatus))
	assert.Equal(t, ErrorResponseRef, op.Responses.Value("500").Ref)
	assert.Nil(t, op.Security)

	require.Len(t, op.Parameters, 1)
	assert.Equal(t, "id", op.Parameters[0].Value.Name)
	assert.Equal(t, openapi3.ParameterInPath, op.Parameters[0].Value.In)
	assert.True(t, op.Parameters[0].Value.Required)
}

func TestMergeRoutesUndocumentedDefaults(t *testing.T) {
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("createUser", "handlers/user.createUser", route(http.MethodPost, "users")),
	}, nil)
	require.NoError(t, err)

	op := operation(t, paths, "/users", http.MethodPost)
	assert.Equal(t, "user.createUser", op.OperationID)
	assert.Equal(t, DefaultDescription, op.Description)
	assert.Equal(t, DefaultDescription, op.Summary)
	assert.Equal(t, 2, op.Responses.Len())
	assert.Equal(t, GeneralResponseRef, op.Responses.Value("2XX").Ref)
	assert.Equal(t, ErrorResponseRef, op.Responses.Value("500").Ref)
	assert.Nil(t, op.Security)
	assert.Empty(t, op.Parameters)
}

func TestMergeRoutesStatusIsKeptVerbatim(t *testing.T) {
	docs := model.DocIndex{"h": {"create": {
		"success": map[string]any{"status": 201, "description": "Created"},
	}}}
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("create", "h.create", route(http.MethodPost, "/items")),
	}, docs)
	require.NoError(t, err)

	op := operation(t, paths, "/items", http.MethodPost)
	created := op.Responses.Value("201")
	require.NotNil(t, created)
	assert.Equal(t, "Created", *created.Value.Description)
	assert.True(t, created.Value.Content.Get("application/json").Schema.Value.Type.Is("object"))
	assert.Nil(t, op.Responses.Value("2XX"))
	assert.Equal(t, 2, op.Responses.Len())
}

func TestMergeRoutesSharedPath(t *testing.T) {
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("list", "h.list", route(http.MethodGet, "/orders")),
		def("create", "h.create", route(http.MethodPost, "/orders")),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, paths.Len())
	assert.Equal(t, "h.list", operation(t, paths, "/orders", http.MethodGet).OperationID)
	assert.Equal(t, "h.create", operation(t, paths, "/orders", http.MethodPost).OperationID)
}

func TestMergeRoutesAuthorization(t *testing.T) {
	docs := model.DocIndex{"h": {
		"one":  {"authorization": "user"},
		"many": {"authorization": []any{"user", "admin"}},
		"bad":  {"authorization": 42},
	}}
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("one", "h.one", route(http.MethodGet, "/one")),
		def("many", "h.many", route(http.MethodGet, "/many")),
		def("bad", "h.bad", route(http.MethodGet, "/bad")),
	}, docs)
	require.NoError(t, err)

	one := operation(t, paths, "/one", http.MethodGet)
	require.NotNil(t, one.Security)
	require.Len(t, *one.Security, 1)
	assert.Equal(t, openapi3.SecurityRequirement{"user": []string{}}, (*one.Security)[0])

	many := operation(t, paths, "/many", http.MethodGet)
	require.NotNil(t, many.Security)
	assert.Equal(t, openapi3.SecurityRequirement{"user": []string{}, "admin": []string{}}, (*many.Security)[0])

	assert.Nil(t, operation(t, paths, "/bad", http.MethodGet).Security)
}

func TestMergeRoutesFailureShorthand(t *testing.T) {
	docs := model.DocIndex{"h": {"get": {
		"failure": map[string]any{
			"404": map[string]any{"message": "user not found", "type": "NotFoundError"},
			"400": nil,
		},
	}}}
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("get", "h.get", route(http.MethodGet, "/users/{id}")),
	}, docs)
	require.NoError(t, err)

	op := operation(t, paths, "/users/{id}", http.MethodGet)
	assert.Nil(t, op.Responses.Value("500"), "explicit failures replace the fallback")
	assert.Equal(t, GeneralResponseRef, op.Responses.Value("2XX").Ref)

	notFound := op.Responses.Value("404").Value
	assert.Equal(t, "Not Found", *notFound.Description)
	assert.Equal(t, map[string]any{"errorMessage": "user not found", "errorType": "NotFoundError"},
		notFound.Content.Get("application/json").Example)

	badRequest := op.Responses.Value("400").Value
	assert.Equal(t, "Bad Request", *badRequest.Description)
	assert.Equal(t, map[string]any{"errorMessage": "[400] BasicError", "errorType": "BasicError"},
		badRequest.Content.Get("application/json").Example)
}

func TestMergeRoutesPassthroughAndShorthandKeys(t *testing.T) {
	fragment := model.AnnotationFragment{
		"description":   "Tagged",
		"tags":          []any{"users"},
		"deprecated":    true,
		"x-rate-limit":  10,
		"unknown":       "dropped",
		"authorization": "user",
		"success":       map[string]any{"status": "200"},
	}
	docs := model.DocIndex{"h": {"get": fragment}}
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("get", "h.get", route(http.MethodGet, "/tagged")),
	}, docs)
	require.NoError(t, err)

	op := operation(t, paths, "/tagged", http.MethodGet)
	assert.Equal(t, []string{"users"}, op.Tags)
	assert.True(t, op.Deprecated)
	assert.Contains(t, op.Extensions, "x-rate-limit")
	assert.NotContains(t, op.Extensions, "unknown")
	assert.NotContains(t, op.Extensions, "authorization")
	assert.NotContains(t, op.Extensions, "success")

	data, err := op.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"success"`)
	assert.NotContains(t, string(data), `"authorization"`)

	assert.Len(t, fragment, 7, "fragment must not be modified")
	assert.Equal(t, map[string]any{"status": "200"}, fragment["success"])
}

func TestMergeRoutesInvalidPassthrough(t *testing.T) {
	docs := model.DocIndex{"h": {"get": {"tags": "not-a-list"}}}
	_, err := MergeRoutes([]model.FunctionDefinition{
		def("get", "h.get", route(http.MethodGet, "/x")),
	}, docs)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAnnotationParse, apperrors.GetKind(err))
	assert.Equal(t, "get", apperrors.GetAttributes(err)["function"])
}

func TestMergeRoutesAnyExpansion(t *testing.T) {
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("gateway", "handlers/proxy.gateway", route("ANY", "/proxy")),
	}, nil)
	require.NoError(t, err)

	item := paths.Value("/proxy")
	require.NotNil(t, item)
	assert.Len(t, item.Operations(), len(anyMethods))
	assert.Equal(t, "proxy.gateway_get", item.Get.OperationID)
	assert.Equal(t, "proxy.gateway_delete", item.Delete.OperationID)
	assert.Nil(t, item.Trace)
}

func TestMergeRoutesFirstDefinitionWins(t *testing.T) {
	docs := model.DocIndex{"h": {
		"first":  {"description": "first"},
		"second": {"description": "second"},
	}}
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("first", "h.first", route(http.MethodGet, "/dup")),
		def("second", "h.second", route("get", "dup")),
	}, docs)
	require.NoError(t, err)
	assert.Equal(t, "first", operation(t, paths, "/dup", http.MethodGet).Description)
}

func TestMergeRoutesIndependentOperations(t *testing.T) {
	docs := model.DocIndex{"h": {"shared": {"success": map[string]any{"status": "200"}}}}
	paths, err := MergeRoutes([]model.FunctionDefinition{
		def("shared", "h.shared", route(http.MethodGet, "/a"), route(http.MethodGet, "/b/{id}")),
	}, docs)
	require.NoError(t, err)

	a := operation(t, paths, "/a", http.MethodGet)
	b := operation(t, paths, "/b/{id}", http.MethodGet)
	assert.NotSame(t, a, b)
	assert.Empty(t, a.Parameters)
	assert.Len(t, b.Parameters, 1)
}

func TestMergeRoutesUnsupportedMethod(t *testing.T) {
	_, err := MergeRoutes([]model.FunctionDefinition{
		def("weird", "h.weird", route("BREW", "/coffee")),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindManifestParse, apperrors.GetKind(err))
}

func TestMergeRoutesFunctionWithoutHandler(t *testing.T) {
	paths, err := MergeRoutes([]model.FunctionDefinition{
		{Name: "bare", Routes: []model.RouteBinding{route(http.MethodGet, "/bare")}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "bare", operation(t, paths, "/bare", http.MethodGet).OperationID)
}
