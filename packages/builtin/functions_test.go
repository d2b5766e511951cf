package builtin

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()
	r.now = func() time.Time { return time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC) }

	tests := []struct {
		expr     string
		expected string
	}{
		{`base64("user:pass")`, "dXNlcjpwYXNz"},
		{`base64Decode('dXNlcjpwYXNz')`, "user:pass"},
		{`md5("")`, "d41d8cd98f00b204e9800998ecf8427e"},
		{`sha256("abc")`, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{`urlEncode("a b&c")`, "a+b%26c"},
		{`urlDecode("a+b%26c")`, "a b&c"},
		{`date()`, "2024-03-09"},
		{`date("15:04")`, "10:30"},
		{`now()`, "2024-03-09T10:30:00Z"},
		{`timestamp()`, "1709980200"},
		{`timestampMs()`, "1709980200000"},
		{`env("HITSEND_TEST_UNSET_VAR", "fallback")`, "fallback"},
		{`jsonPath('{"user":{"id":7,"name":"ada"}}', "user.name")`, "ada"},
		{`jsonPath('{"user":{"id":7}}', "user")`, `{"id":7}`},
		{`jsonPath("{\"a\":[1,2]}", "a.1")`, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := r.Call(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRegistry_CallErrors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Call("nope()")
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = r.Call("not a call")
	assert.Error(t, err)

	for _, expr := range []string{
		`random("a", "b")`,
		`random(10, 1)`,
		`randomString(-1)`,
		`base64Decode("***")`,
		`base64()`,
		`env("HITSEND_TEST_UNSET_VAR")`,
		`jsonPath("not json", "a")`,
		`jsonPath('{"a":1}', "b")`,
	} {
		_, err := r.Call(expr)
		assert.Error(t, err, expr)
	}
}

func TestRegistry_Random(t *testing.T) {
	r := NewRegistry()

	id, err := r.Call("uuid()")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`), id)

	for i := 0; i < 20; i++ {
		out, err := r.Call("random(5, 7)")
		require.NoError(t, err)
		n, err := strconv.Atoi(out)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 5)
		assert.LessOrEqual(t, n, 7)
	}

	s, err := r.Call("randomString(12)")
	require.NoError(t, err)
	assert.Len(t, s, 12)

	email, err := r.Call("randomEmail()")
	require.NoError(t, err)
	assert.Regexp(t, `^[a-z]{8}@[a-z]{6}\.com$`, email)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("greet", func(args []string) (string, error) {
		return "hello " + args[0], nil
	})

	out, err := r.Call(`greet("world")`)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Contains(t, r.Names(), "greet")
	assert.True(t, IsCall("greet()"))
	assert.False(t, IsCall("greet"))
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d,e"}, parseArgs(`a, "b c", 'd,e'`))
	assert.Equal(t, []string{`say "hi"`}, parseArgs(`"say \"hi\""`))
	assert.Equal(t, []string{""}, parseArgs(`""`))
}
