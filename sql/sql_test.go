package sql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endb-go/endb/sql"
)

func TestEscapeLike(t *testing.T) {
	require.Equal(t, "a!_b!%c!!:", sql.EscapeLike("a_b%c!:"))
	require.Equal(t, "plain:", sql.EscapeLike("plain:"))
}

func TestEscapeGlob(t *testing.T) {
	require.Equal(t, "a[*]b[?]c[[]d]:", sql.EscapeGlob("a*b?c[d]:"))
}

func TestQuote(t *testing.T) {
	require.Equal(t, `"endb"`, sql.QuoteDouble("endb"))
	require.Equal(t, `"a""b"`, sql.QuoteDouble(`a"b`))
	require.Equal(t, "`endb`", sql.QuoteBacktick("endb"))
	require.Equal(t, "`a``b`", sql.QuoteBacktick("a`b"))
	require.Equal(t, "$2", sql.DollarParam(2))
	require.Equal(t, "?", sql.QuestionParam(2))
}
