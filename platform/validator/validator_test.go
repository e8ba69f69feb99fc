package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type queryRequest struct {
	Query string `validate:"required,notblank,max=200"`
}

func TestNotBlankRejectsWhitespace(t *testing.T) {
	v := New()
	require.Error(t, v.Struct(queryRequest{Query: "   "}))
	require.Error(t, v.Var("\t\n", "notblank"))
	require.NoError(t, v.Struct(queryRequest{Query: "10 rue de Rivoli"}))
}
