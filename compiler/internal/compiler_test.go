package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaobogaga/minicc/asm"
)

// evaluate compiles src and runs the resulting function on the asm interpreter.
func evaluate(t *testing.T, src string, config Config) int64 {
	t.Helper()
	code, err := Compile(src, config)
	require.Nil(t, err, src)
	program, err := asm.Parse(strings.NewReader(code))
	require.Nil(t, err, code)
	entry := config.withDefaults().EntrySymbol
	assert.Contains(t, program.Globals, entry)
	value, err := asm.NewMachine(program, asm.WithMaxSteps(100000)).Run(entry)
	require.Nil(t, err, code)
	return value
}

func TestCompile_Evaluate(t *testing.T) {
	testData := []struct {
		Content string
		Value   int64
	}{
		{Content: "", Value: 0},
		{Content: "42;", Value: 42},
		{Content: "9-5-1;", Value: 3},
		{Content: "1+2*3;", Value: 7},
		{Content: "(1+2)*3;", Value: 9},
		{Content: "100/10/5;", Value: 2},
		{Content: "-7/2;", Value: -3},
		{Content: "-3*-4;", Value: 12},
		{Content: "+5;", Value: 5},
		{Content: "1<2; ", Value: 1},
		{Content: "2<1;", Value: 0},
		{Content: "2<=2;", Value: 1},
		{Content: "3>2;", Value: 1},
		{Content: "2>=3;", Value: 0},
		{Content: "1==1;", Value: 1},
		{Content: "1!=1;", Value: 0},
		{Content: "1<2==1;", Value: 1},
		{Content: "3000000000*3;", Value: 9000000000},
		{Content: "9223372036854775807;", Value: 9223372036854775807},
		{Content: "a=3; a=a+2; a;", Value: 5},
		{Content: "a=b=4; a*b;", Value: 16},
		{Content: "a=1; b=2; c=3; d=4; e=a+b+c+d; e;", Value: 10},
		{Content: "x;", Value: 0},
		{Content: "if (0) 1; else 2;", Value: 2},
		{Content: "if (1) 1; else 2;", Value: 1},
		{Content: "a=5; if (a>3) a=1; a;", Value: 1},
		{Content: "a=5; if (a<3) a=1; a;", Value: 5},
		{Content: "if (1) if (0) 1; else 2;", Value: 2},
		{Content: "a=0; while (a<3) a=a+1; a;", Value: 3},
		{Content: "i=10; while (i<3) i=i+1; i;", Value: 10},
		{Content: "s=0; for (i=0; i<=10; i=i+1) s=s+i; s;", Value: 55},
		{Content: "i=0; for (;;) { i=i+1; if (i==7) return i; }", Value: 7},
		{Content: "for (i=0; i<5;) i=i+2; i;", Value: 6},
		{Content: "return 1; 2;", Value: 1},
		{Content: "a=1; { a=a+1; { a=a*10; } } a;", Value: 20},
		{Content: "{ }", Value: 0},
		{Content: "s=0; i=0; while (i<4) { j=0; while (j<i) { s=s+1; j=j+1; } i=i+1; } s;", Value: 6},
		{Content: "a=1; b=a; a=2; b;", Value: 1},
	}
	for _, data := range testData {
		assert.Equal(t, data.Value, evaluate(t, data.Content, DefaultConfig()), data.Content)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	src := "s=0; for (i=0; i<3; i=i+1) if (i==1) s=s+10; else s=s+1; s;"
	first, err := Compile(src, DefaultConfig())
	require.Nil(t, err)
	second, err := Compile(src, DefaultConfig())
	require.Nil(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first, ".Lbegin0:")
	assert.Contains(t, first, ".Lelse1:")
	assert.NotContains(t, first, "2:")

	program, err := Parse(src)
	require.Nil(t, err)
	before := program.String()
	third, err := Generate(program, DefaultConfig())
	require.Nil(t, err)
	fourth, err := Generate(program, DefaultConfig())
	require.Nil(t, err)
	assert.Equal(t, first, third)
	assert.Equal(t, third, fourth)
	assert.Equal(t, before, program.String())
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile("1+;", DefaultConfig())
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Pos)
	assert.True(t, parseErr.InProduction("primary"))

	_, err = Compile("1=2;", DefaultConfig())
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 0, parseErr.Pos)
	assert.Equal(t, []string{"identifier"}, parseErr.Expected)
	assert.True(t, parseErr.InProduction("assign"))

	config := DefaultConfig()
	config.FrameSlots = 2
	_, err = Compile("a=1; b=2; c=3;", config)
	var exhausted *ResourceExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "c", exhausted.Name)

	config.EntrySymbol = "not a symbol"
	_, err = Compile("1;", config)
	assert.NotNil(t, err)
}

func TestCompile_Config(t *testing.T) {
	config := Config{EntrySymbol: "start", FrameSlots: 26, LabelPrefix: ".LX", Comments: true}
	code, err := Compile("a=2; while (a<8) a=a*2; a;", config)
	require.Nil(t, err)
	assert.Contains(t, code, ".globl start\nstart:\n")
	assert.Contains(t, code, "  sub rsp, 208\n")
	assert.Contains(t, code, ".LXbegin0:")
	assert.Contains(t, code, "  # while ((a < 8)) (a = (a * 2));\n")
	assert.Equal(t, int64(8), evaluate(t, "a=2; while (a<8) a=a*2; a;", config))

	// A zero Config behaves like DefaultConfig.
	assert.Equal(t, int64(3), evaluate(t, "1+2;", Config{}))
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.c")
	require.Nil(t, os.WriteFile(path, []byte("a = 6;\n// six times seven\na * 7;\n"), 0o644))
	code, err := CompileFile(path, DefaultConfig())
	require.Nil(t, err)
	program, err := asm.Parse(strings.NewReader(code))
	require.Nil(t, err)
	value, err := asm.NewMachine(program).Run("main")
	require.Nil(t, err)
	assert.Equal(t, int64(42), value)

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.c"), DefaultConfig())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
