package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHandlerRef(t *testing.T) {
	tests := []struct {
		in   string
		want HandlerRef
	}{
		{"handlers/user.getUser", HandlerRef{File: "handlers/user", Symbol: "getUser"}},
		{"./src/api.v1/user.list", HandlerRef{File: "src/api.v1/user", Symbol: "list"}},
		{"index.handler", HandlerRef{File: "index", Symbol: "handler"}},
		{"handlers/plain", HandlerRef{File: "handlers/plain"}},
		{"", HandlerRef{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHandlerRef(tt.in))
		})
	}
}

func TestHandlerRefOperationName(t *testing.T) {
	assert.Equal(t, "user.getUser", ParseHandlerRef("handlers/user.getUser").OperationName())
	assert.Equal(t, "users.get", ParseHandlerRef("src/handlers/users.get").OperationName())
	assert.Equal(t, "handler.main", ParseHandlerRef("handler.main").OperationName())
	assert.Equal(t, "plain", ParseHandlerRef("handlers/plain").OperationName())
	assert.Equal(t, "handlers/user.getUser", ParseHandlerRef("handlers/user.getUser").String())
}

func TestHandlerFiles(t *testing.T) {
	defs := []FunctionDefinition{
		{Name: "a", Handler: ParseHandlerRef("handlers/user.getUser")},
		{Name: "b", Handler: ParseHandlerRef("handlers/user.createUser")},
		{Name: "c", Handler: ParseHandlerRef("handlers/order.list")},
		{Name: "d"},
	}
	assert.Equal(t, []string{"handlers/user", "handlers/order"}, HandlerFiles(defs))
}

func TestDocIndexLookup(t *testing.T) {
	idx := DocIndex{
		"handlers/user": {"getUser": {"description": "Fetch"}},
	}
	assert.Equal(t, "Fetch", idx.Lookup(ParseHandlerRef("handlers/user.getUser"))["description"])
	assert.Nil(t, idx.Lookup(ParseHandlerRef("handlers/user.other")))
	assert.Nil(t, idx.Lookup(ParseHandlerRef("handlers/none.x")))
	assert.Nil(t, DocIndex(nil).Lookup(HandlerRef{}))
}
