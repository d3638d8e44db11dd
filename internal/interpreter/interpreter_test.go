package interpreter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/karupanerura/golox/internal/config"
	"github.com/karupanerura/golox/internal/expression"
	"github.com/karupanerura/golox/internal/interpreter"
	"github.com/karupanerura/golox/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRun(t *testing.T) {
	t.Parallel()

	in := interpreter.New(config.Default(), zaptest.NewLogger(t))
	for _, tt := range []struct {
		source string
		value  any
		ast    string
	}{
		{source: "1 + 2 * 3", value: 7.0, ast: "(+ 1 (* 2 3))"},
		{source: `"foo" + "bar"`, value: "foobar", ast: "(+ foo bar)"},
		{source: "!nil", value: true, ast: "(! nil)"},
		{source: "(1 > 2) == false", value: true, ast: "(== (group (> 1 2)) false)"},
		{source: "nil", value: nil, ast: "nil"},
		{source: "// comment\n-(4 / 2)", value: -2.0, ast: "(- (group (/ 4 2)))"},
	} {
		tt := tt
		t.Run(tt.source, func(t *testing.T) {
			t.Parallel()

			result, err := in.Run(context.Background(), tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.value, result.Value.GoValue())
			assert.Equal(t, tt.ast, result.AST())
			assert.Equal(t, expression.EOF, result.Tokens[len(result.Tokens)-1].Kind)
		})
	}
}

func TestRunScanFailure(t *testing.T) {
	t.Parallel()

	in := interpreter.New(nil, nil)
	result, err := in.Run(context.Background(), "1 + @\n\"open")

	var failure *interpreter.ScanFailure
	require.ErrorAs(t, err, &failure)
	require.Len(t, failure.Errors, 2)
	assert.Equal(t, 1, failure.Errors[0].Line)
	assert.Equal(t, 2, failure.Errors[1].Line)
	assert.Equal(t, "[line 1] invalid character: '@'\n[line 2] unterminated string", err.Error())

	var scanErr *expression.ScanError
	assert.ErrorAs(t, err, &scanErr)
	assert.NotEmpty(t, result.Tokens)
	assert.Nil(t, result.Expr)
}

func TestRunParseFailure(t *testing.T) {
	t.Parallel()

	in := interpreter.New(config.Default(), nil)
	_, err := in.Run(context.Background(), "1 2")

	var parseErr *expression.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "expected end of input", parseErr.Message)

	cfg := config.Default()
	cfg.Strict = false
	result, err := interpreter.New(cfg, nil).Run(context.Background(), "1 2")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Value.GoValue())
}

func TestRunRuntimeFailure(t *testing.T) {
	t.Parallel()

	in := interpreter.New(nil, nil)
	result, err := in.Run(context.Background(), `1 - "one"`)
	assert.True(t, types.IsTag(err, types.TypeErrorTag))
	assert.Equal(t, "(- 1 one)", result.AST())
	assert.Equal(t, types.NilKind, result.Value.Kind())
}

func TestRunDepthLimits(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.MaxDepth = 3
	_, err := interpreter.New(cfg, nil).Run(context.Background(), "((((1))))")
	assert.ErrorIs(t, err, expression.ErrTooDeeplyNested)

	cfg = config.Default()
	cfg.MaxEvaluationDepth = 3
	_, err = interpreter.New(cfg, nil).Run(context.Background(), "-(-(-1))")
	assert.True(t, types.IsTag(err, types.RecursionErrorTag))

	// binary operators do not nest
	result, err := interpreter.New(cfg, nil).Run(context.Background(), "1 + 2 + 3 + 4")
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.Value.GoValue())
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := interpreter.New(nil, nil).Run(ctx, "1 + 1")
	assert.ErrorIs(t, err, context.Canceled)

	cfg := config.Default()
	cfg.Timeout = time.Minute
	result, err := interpreter.New(cfg, nil).Run(context.Background(), "1 + 1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Value.GoValue())
}

func TestRunFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, source string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(source), 0o600))
		return path
	}
	paths := []string{
		write("a.lox", "1 + 1"),
		write("b.lox", "-nil"),
		filepath.Join(dir, "missing.lox"),
		write("c.lox", `"a" + "b"`),
	}

	cfg := config.Default()
	cfg.Concurrency = 2
	results := interpreter.New(cfg, zaptest.NewLogger(t)).RunFiles(context.Background(), paths)
	require.Len(t, results, len(paths))
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}

	require.NoError(t, results[0].Err)
	assert.Equal(t, 2.0, results[0].Result.Value.GoValue())
	assert.True(t, types.IsTag(results[1].Err, types.TypeErrorTag))
	assert.True(t, errors.Is(results[2].Err, os.ErrNotExist))
	assert.Nil(t, results[2].Result)
	require.NoError(t, results[3].Err)
	assert.Equal(t, "ab", results[3].Result.Value.GoValue())
}
