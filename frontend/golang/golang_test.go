package golang_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/pathwalk/pathwalk"
	"github.com/pathwalk/pathwalk/frontend/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opt := golang.Options()
	assert.Equal(t, pathwalk.DivTrunc, opt.Division)
	assert.Equal(t, pathwalk.NumStrict, opt.Numeric)
	assert.True(t, opt.Features.Enabled(pathwalk.FeatureSeq))
}

func TestLowerFunc_Params(t *testing.T) {
	decl := lower(t, `
func f(a, b int, s string, r float64, ok bool) int {
	return a
}`)

	require.Len(t, decl.Params, 5)
	assert.Equal(t, pathwalk.Param{Name: "a", Domain: pathwalk.DomainInt}, decl.Params[0])
	assert.Equal(t, pathwalk.Param{Name: "b", Domain: pathwalk.DomainInt}, decl.Params[1])
	assert.Equal(t, pathwalk.Param{Name: "s", Domain: pathwalk.DomainString}, decl.Params[2])
	assert.Equal(t, pathwalk.Param{Name: "r", Domain: pathwalk.DomainReal}, decl.Params[3])
	assert.Equal(t, pathwalk.Param{Name: "ok", Domain: pathwalk.DomainBool}, decl.Params[4])
}

func TestLowerFunc_IfElseChain(t *testing.T) {
	decl := lower(t, `
func f(x int) int {
	if x > 10 {
		return 1
	} else if x > 5 {
		return 2
	} else {
		return 3
	}
}`)

	require.Len(t, decl.Body, 1)
	outer, ok := decl.Body[0].(*pathwalk.IfStmt)
	require.True(t, ok, "got %T", decl.Body[0])

	// The else-if chain nests as the else arm.
	require.Len(t, outer.Else, 1)
	inner, ok := outer.Else[0].(*pathwalk.IfStmt)
	require.True(t, ok, "got %T", outer.Else[0])
	assert.Len(t, inner.Then, 1)
	assert.Len(t, inner.Else, 1)
}

func TestLowerFunc_ForLoop(t *testing.T) {
	t.Run("CountedToWhile", func(t *testing.T) {
		decl := lower(t, `
func f(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += i
	}
	return total
}`)

		// total, i, while, return.
		require.Len(t, decl.Body, 4)
		while, ok := decl.Body[2].(*pathwalk.WhileStmt)
		require.True(t, ok, "got %T", decl.Body[2])
		assert.Equal(t, "(i < n)", while.Cond.String())

		// The post statement runs at the end of the body.
		require.Len(t, while.Body, 2)
		post, ok := while.Body[1].(*pathwalk.AssignStmt)
		require.True(t, ok, "got %T", while.Body[1])
		assert.Equal(t, "i", post.Name)
	})

	t.Run("UnconditionalIsOpaque", func(t *testing.T) {
		decl := lower(t, `
func f() int {
	for {
	}
}`)
		require.Len(t, decl.Body, 1)
		_, ok := decl.Body[0].(*pathwalk.OpaqueStmt)
		assert.True(t, ok, "got %T", decl.Body[0])
	})
}

func TestLowerFunc_PanicToRaise(t *testing.T) {
	decl := lower(t, `
func f(x int) int {
	if x == 0 {
		panic("zero input")
	}
	return x
}`)

	ifStmt, ok := decl.Body[0].(*pathwalk.IfStmt)
	require.True(t, ok)
	require.Len(t, ifStmt.Then, 1)
	raise, ok := ifStmt.Then[0].(*pathwalk.RaiseStmt)
	require.True(t, ok, "got %T", ifStmt.Then[0])
	assert.Equal(t, "zero input", raise.Kind)
}

func TestLowerFunc_CompoundAssign(t *testing.T) {
	decl := lower(t, `
func f(x int) int {
	x += 2
	x *= 3
	return x
}`)

	require.Len(t, decl.Body, 3)
	add := decl.Body[0].(*pathwalk.AssignStmt)
	assert.Equal(t, "x = (x + 2)", add.String())
	mul := decl.Body[1].(*pathwalk.AssignStmt)
	assert.Equal(t, "x = (x * 3)", mul.String())
}

func TestLowerFunc_StringsHelpers(t *testing.T) {
	decl := lower(t, `
func f(s string) bool {
	return strings.HasPrefix(s, "db:")
}`)

	ret, ok := decl.Body[0].(*pathwalk.ReturnStmt)
	require.True(t, ok)
	call, ok := ret.Value.(*pathwalk.CallExpr)
	require.True(t, ok, "got %T", ret.Value)
	assert.Equal(t, "has_prefix", call.Func)
	require.Len(t, call.Args, 2)
}

func TestLowerFunc_Literals(t *testing.T) {
	decl := lower(t, `
func f() int {
	a := 0x10
	b := 1.5
	c := "hi"
	d := 'A'
	e := []int{1, 2}
	return a
}`)

	assigns := make([]*pathwalk.AssignStmt, 0, 5)
	for _, stmt := range decl.Body {
		if a, ok := stmt.(*pathwalk.AssignStmt); ok {
			assigns = append(assigns, a)
		}
	}
	require.Len(t, assigns, 5)

	assert.Equal(t, &pathwalk.IntLit{Value: 16}, assigns[0].Value)
	assert.IsType(t, &pathwalk.RealLit{}, assigns[1].Value)
	assert.Equal(t, &pathwalk.StringLit{Value: "hi"}, assigns[2].Value)
	assert.Equal(t, &pathwalk.IntLit{Value: 65}, assigns[3].Value)
	assert.IsType(t, &pathwalk.ListLit{}, assigns[4].Value)
}

func TestLowerFunc_OpaqueFallbacks(t *testing.T) {
	t.Run("MultiValueReturn", func(t *testing.T) {
		decl := lower(t, `
func f() (int, int) {
	return 1, 2
}`)
		op, ok := decl.Body[0].(*pathwalk.OpaqueStmt)
		require.True(t, ok, "got %T", decl.Body[0])
		// The marker carries the source text for diagnostics.
		assert.Contains(t, op.Text, "return 1, 2")
	})

	t.Run("MapLiteral", func(t *testing.T) {
		decl := lower(t, `
func f() int {
	m := map[string]int{"a": 1}
	return 0
}`)
		assign, ok := decl.Body[0].(*pathwalk.AssignStmt)
		require.True(t, ok)
		assert.IsType(t, &pathwalk.OpaqueExpr{}, assign.Value)
	})

	t.Run("GoStmt", func(t *testing.T) {
		decl := lower(t, `
func f() {
	go g()
}`)
		assert.IsType(t, &pathwalk.OpaqueStmt{}, decl.Body[0])
	})
}

func TestLowerFunc_NoBody(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "x.go", "package x\n\nfunc f() int\n", 0)
	require.NoError(t, err)

	fn := file.Decls[0].(*ast.FuncDecl)
	_, err = golang.LowerFunc(fset, fn, nil)
	assert.Error(t, err)
}

// lower parses a single function and lowers it without type information.
func lower(tb testing.TB, src string) *pathwalk.FuncDecl {
	tb.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "x.go", "package x\n"+src, 0)
	require.NoError(tb, err)

	for _, d := range file.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok {
			decl, err := golang.LowerFunc(fset, fn, nil)
			require.NoError(tb, err)
			return decl
		}
	}
	tb.Fatal("no function declaration in source")
	return nil
}
