// Package golang lowers Go source functions into the normalized form the
// exploration engine consumes. It is a reference frontend: anything outside
// the supported subset lowers to an opaque statement or expression so the
// engine degrades instead of failing.
package golang

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"go/types"
	"math/big"
	"strconv"

	"github.com/pathwalk/pathwalk"
	"golang.org/x/tools/go/packages"
)

// Options returns translator options matching Go's evaluation semantics:
// integer division truncates toward zero and mixed int/float arithmetic is
// never implicit.
func Options() pathwalk.TranslateOptions {
	return pathwalk.TranslateOptions{
		Division: pathwalk.DivTrunc,
		Numeric:  pathwalk.NumStrict,
		Features: pathwalk.FeatureSeq,
	}
}

// LoadFunc loads the packages matching pattern and lowers the named
// function.
func LoadFunc(pattern, name string) (*pathwalk.FuncDecl, error) {
	decls, err := LoadFuncs(pattern)
	if err != nil {
		return nil, err
	}
	for _, decl := range decls {
		if decl.Name == name {
			return decl, nil
		}
	}
	return nil, fmt.Errorf("golang: function not found: %s", name)
}

// LoadFuncs loads the packages matching pattern and lowers every top-level
// function with a body.
func LoadFuncs(pattern string) ([]*pathwalk.FuncDecl, error) {
	initial, err := packages.Load(&packages.Config{
		Mode: packages.NeedName | packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo,
	}, pattern)
	if err != nil {
		return nil, err
	} else if packages.PrintErrors(initial) > 0 {
		return nil, fmt.Errorf("golang: packages contain errors")
	}

	var decls []*pathwalk.FuncDecl
	for _, pkg := range initial {
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				fn, ok := decl.(*ast.FuncDecl)
				if !ok || fn.Body == nil || fn.Recv != nil {
					continue
				}
				lowered, err := LowerFunc(pkg.Fset, fn, pkg.TypesInfo)
				if err != nil {
					return nil, err
				}
				decls = append(decls, lowered)
			}
		}
	}
	return decls, nil
}

// LowerFunc lowers a single parsed function. Type information is optional;
// without it parameters default to the integer domain.
func LowerFunc(fset *token.FileSet, fn *ast.FuncDecl, info *types.Info) (*pathwalk.FuncDecl, error) {
	if fn.Body == nil {
		return nil, fmt.Errorf("golang: function has no body: %s", fn.Name.Name)
	}

	l := &lowerer{fset: fset, info: info}

	var params []pathwalk.Param
	for _, field := range fn.Type.Params.List {
		for _, name := range field.Names {
			params = append(params, pathwalk.Param{
				Name:   name.Name,
				Domain: l.domainOf(field.Type),
			})
		}
	}

	return &pathwalk.FuncDecl{
		Name:   fn.Name.Name,
		Params: params,
		Body:   l.stmts(fn.Body.List),
	}, nil
}

// lowerer holds context for one function lowering.
type lowerer struct {
	fset *token.FileSet
	info *types.Info
}

// domainOf maps a Go type expression to a value domain.
func (l *lowerer) domainOf(expr ast.Expr) pathwalk.Domain {
	if l.info != nil {
		if tv, ok := l.info.Types[expr]; ok && tv.Type != nil {
			return domainOfType(tv.Type)
		}
	}
	// Fall back to the syntactic name when type info is unavailable.
	if ident, ok := expr.(*ast.Ident); ok {
		switch ident.Name {
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
			return pathwalk.DomainInt
		case "bool":
			return pathwalk.DomainBool
		case "float32", "float64":
			return pathwalk.DomainReal
		case "string":
			return pathwalk.DomainString
		}
	}
	if _, ok := expr.(*ast.ArrayType); ok {
		return pathwalk.DomainSeq
	}
	return pathwalk.DomainAny
}

func domainOfType(typ types.Type) pathwalk.Domain {
	switch typ := typ.Underlying().(type) {
	case *types.Basic:
		switch {
		case typ.Info()&types.IsInteger != 0:
			return pathwalk.DomainInt
		case typ.Info()&types.IsBoolean != 0:
			return pathwalk.DomainBool
		case typ.Info()&types.IsFloat != 0:
			return pathwalk.DomainReal
		case typ.Info()&types.IsString != 0:
			return pathwalk.DomainString
		}
	case *types.Slice:
		return pathwalk.DomainSeq
	}
	return pathwalk.DomainAny
}

func (l *lowerer) stmts(list []ast.Stmt) []pathwalk.Stmt {
	var out []pathwalk.Stmt
	for _, stmt := range list {
		out = append(out, l.stmt(stmt)...)
	}
	return out
}

// stmt lowers one statement. Statements may expand to several normalized
// statements or collapse into an opaque marker.
func (l *lowerer) stmt(stmt ast.Stmt) []pathwalk.Stmt {
	switch stmt := stmt.(type) {
	case *ast.AssignStmt:
		return l.assignStmt(stmt)

	case *ast.IncDecStmt:
		ident, ok := stmt.X.(*ast.Ident)
		if !ok {
			return l.opaqueStmt(stmt)
		}
		op := pathwalk.OpAdd
		if stmt.Tok == token.DEC {
			op = pathwalk.OpSub
		}
		return []pathwalk.Stmt{&pathwalk.AssignStmt{
			Name: ident.Name,
			Value: &pathwalk.BinaryExpr{
				Op: op,
				X:  &pathwalk.Ident{Name: ident.Name},
				Y:  &pathwalk.IntLit{Value: 1},
			},
		}}

	case *ast.IfStmt:
		var out []pathwalk.Stmt
		if stmt.Init != nil {
			out = append(out, l.stmt(stmt.Init)...)
		}
		ifStmt := &pathwalk.IfStmt{
			Cond: l.expr(stmt.Cond),
			Then: l.stmts(stmt.Body.List),
		}
		switch els := stmt.Else.(type) {
		case nil:
		case *ast.BlockStmt:
			ifStmt.Else = l.stmts(els.List)
		case *ast.IfStmt:
			ifStmt.Else = l.stmt(els)
		default:
			ifStmt.Else = l.opaqueStmt(els)
		}
		return append(out, ifStmt)

	case *ast.ForStmt:
		if stmt.Cond == nil {
			// Unconditional loops have no bounded-unrolling exit condition.
			return l.opaqueStmt(stmt)
		}
		var out []pathwalk.Stmt
		if stmt.Init != nil {
			out = append(out, l.stmt(stmt.Init)...)
		}
		body := l.stmts(stmt.Body.List)
		if stmt.Post != nil {
			body = append(body, l.stmt(stmt.Post)...)
		}
		return append(out, &pathwalk.WhileStmt{Cond: l.expr(stmt.Cond), Body: body})

	case *ast.ReturnStmt:
		switch len(stmt.Results) {
		case 0:
			return []pathwalk.Stmt{&pathwalk.ReturnStmt{}}
		case 1:
			return []pathwalk.Stmt{&pathwalk.ReturnStmt{Value: l.expr(stmt.Results[0])}}
		default:
			return l.opaqueStmt(stmt)
		}

	case *ast.ExprStmt:
		// A panic with a constant message lowers to a raised error kind.
		if call, ok := stmt.X.(*ast.CallExpr); ok {
			if fn, ok := call.Fun.(*ast.Ident); ok && fn.Name == "panic" && len(call.Args) == 1 {
				if lit, ok := call.Args[0].(*ast.BasicLit); ok && lit.Kind == token.STRING {
					kind, err := strconv.Unquote(lit.Value)
					if err == nil && kind != "" {
						return []pathwalk.Stmt{&pathwalk.RaiseStmt{Kind: kind}}
					}
				}
				return []pathwalk.Stmt{&pathwalk.RaiseStmt{Kind: "panic"}}
			}
		}
		return []pathwalk.Stmt{&pathwalk.ExprStmt{X: l.expr(stmt.X)}}

	case *ast.BlockStmt:
		return l.stmts(stmt.List)

	case *ast.DeclStmt:
		return l.declStmt(stmt)

	default:
		return l.opaqueStmt(stmt)
	}
}

func (l *lowerer) assignStmt(stmt *ast.AssignStmt) []pathwalk.Stmt {
	if len(stmt.Lhs) != 1 || len(stmt.Rhs) != 1 {
		return l.opaqueStmt(stmt)
	}
	ident, ok := stmt.Lhs[0].(*ast.Ident)
	if !ok {
		return l.opaqueStmt(stmt)
	}

	value := l.expr(stmt.Rhs[0])
	switch stmt.Tok {
	case token.ASSIGN, token.DEFINE:
		// Plain binding.
	case token.ADD_ASSIGN:
		value = &pathwalk.BinaryExpr{Op: pathwalk.OpAdd, X: &pathwalk.Ident{Name: ident.Name}, Y: value}
	case token.SUB_ASSIGN:
		value = &pathwalk.BinaryExpr{Op: pathwalk.OpSub, X: &pathwalk.Ident{Name: ident.Name}, Y: value}
	case token.MUL_ASSIGN:
		value = &pathwalk.BinaryExpr{Op: pathwalk.OpMul, X: &pathwalk.Ident{Name: ident.Name}, Y: value}
	case token.QUO_ASSIGN:
		value = &pathwalk.BinaryExpr{Op: pathwalk.OpDiv, X: &pathwalk.Ident{Name: ident.Name}, Y: value}
	case token.REM_ASSIGN:
		value = &pathwalk.BinaryExpr{Op: pathwalk.OpMod, X: &pathwalk.Ident{Name: ident.Name}, Y: value}
	default:
		return l.opaqueStmt(stmt)
	}
	return []pathwalk.Stmt{&pathwalk.AssignStmt{Name: ident.Name, Value: value}}
}

func (l *lowerer) declStmt(stmt *ast.DeclStmt) []pathwalk.Stmt {
	decl, ok := stmt.Decl.(*ast.GenDecl)
	if !ok || decl.Tok != token.VAR {
		return l.opaqueStmt(stmt)
	}

	var out []pathwalk.Stmt
	for _, spec := range decl.Specs {
		spec, ok := spec.(*ast.ValueSpec)
		if !ok || len(spec.Values) != len(spec.Names) {
			out = append(out, l.opaqueStmt(stmt)...)
			continue
		}
		for i, name := range spec.Names {
			out = append(out, &pathwalk.AssignStmt{Name: name.Name, Value: l.expr(spec.Values[i])})
		}
	}
	return out
}

func (l *lowerer) expr(expr ast.Expr) pathwalk.Expr {
	switch expr := expr.(type) {
	case *ast.ParenExpr:
		return l.expr(expr.X)

	case *ast.Ident:
		switch expr.Name {
		case "true":
			return &pathwalk.BoolLit{Value: true}
		case "false":
			return &pathwalk.BoolLit{Value: false}
		}
		return &pathwalk.Ident{Name: expr.Name}

	case *ast.BasicLit:
		return l.basicLit(expr)

	case *ast.BinaryExpr:
		op, ok := binaryOps[expr.Op]
		if !ok {
			return l.opaqueExpr(expr)
		}
		return &pathwalk.BinaryExpr{Op: op, X: l.expr(expr.X), Y: l.expr(expr.Y)}

	case *ast.UnaryExpr:
		switch expr.Op {
		case token.NOT:
			return &pathwalk.UnaryExpr{Op: pathwalk.OpNot, X: l.expr(expr.X)}
		case token.SUB:
			return &pathwalk.UnaryExpr{Op: pathwalk.OpNeg, X: l.expr(expr.X)}
		}
		return l.opaqueExpr(expr)

	case *ast.CallExpr:
		return l.callExpr(expr)

	case *ast.IndexExpr:
		return &pathwalk.IndexExpr{X: l.expr(expr.X), Index: l.expr(expr.Index)}

	case *ast.CompositeLit:
		if _, ok := expr.Type.(*ast.ArrayType); !ok {
			return l.opaqueExpr(expr)
		}
		elems := make([]pathwalk.Expr, len(expr.Elts))
		for i, e := range expr.Elts {
			elems[i] = l.expr(e)
		}
		return &pathwalk.ListLit{Elems: elems}

	default:
		return l.opaqueExpr(expr)
	}
}

var binaryOps = map[token.Token]pathwalk.Op{
	token.ADD:  pathwalk.OpAdd,
	token.SUB:  pathwalk.OpSub,
	token.MUL:  pathwalk.OpMul,
	token.QUO:  pathwalk.OpDiv,
	token.REM:  pathwalk.OpMod,
	token.EQL:  pathwalk.OpEQ,
	token.NEQ:  pathwalk.OpNE,
	token.LSS:  pathwalk.OpLT,
	token.LEQ:  pathwalk.OpLE,
	token.GTR:  pathwalk.OpGT,
	token.GEQ:  pathwalk.OpGE,
	token.LAND: pathwalk.OpAnd,
	token.LOR:  pathwalk.OpOr,
}

func (l *lowerer) basicLit(lit *ast.BasicLit) pathwalk.Expr {
	switch lit.Kind {
	case token.INT:
		v, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return l.opaqueExpr(lit)
		}
		return &pathwalk.IntLit{Value: v}
	case token.FLOAT:
		r, ok := new(big.Rat).SetString(lit.Value)
		if !ok {
			return l.opaqueExpr(lit)
		}
		return &pathwalk.RealLit{Value: r}
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return l.opaqueExpr(lit)
		}
		return &pathwalk.StringLit{Value: s}
	case token.CHAR:
		s, err := strconv.Unquote(lit.Value)
		if err != nil || len(s) == 0 {
			return l.opaqueExpr(lit)
		}
		return &pathwalk.IntLit{Value: int64([]rune(s)[0])}
	default:
		return l.opaqueExpr(lit)
	}
}

func (l *lowerer) callExpr(call *ast.CallExpr) pathwalk.Expr {
	args := make([]pathwalk.Expr, len(call.Args))
	for i, arg := range call.Args {
		args[i] = l.expr(arg)
	}

	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return &pathwalk.CallExpr{Func: fn.Name, Args: args}
	case *ast.SelectorExpr:
		// The strings helpers map directly onto the sequence builtins.
		if pkg, ok := fn.X.(*ast.Ident); ok && pkg.Name == "strings" {
			switch fn.Sel.Name {
			case "Contains":
				return &pathwalk.CallExpr{Func: "contains", Args: args}
			case "HasPrefix":
				return &pathwalk.CallExpr{Func: "has_prefix", Args: args}
			case "HasSuffix":
				return &pathwalk.CallExpr{Func: "has_suffix", Args: args}
			}
		}
	}
	return l.opaqueExpr(call)
}

// opaqueStmt renders the statement's source text into an opaque marker.
func (l *lowerer) opaqueStmt(stmt ast.Stmt) []pathwalk.Stmt {
	return []pathwalk.Stmt{&pathwalk.OpaqueStmt{Text: l.render(stmt)}}
}

// opaqueExpr renders the expression's source text into an opaque marker.
func (l *lowerer) opaqueExpr(expr ast.Expr) pathwalk.Expr {
	return &pathwalk.OpaqueExpr{Text: l.render(expr)}
}

func (l *lowerer) render(node ast.Node) string {
	fset := l.fset
	if fset == nil {
		fset = token.NewFileSet()
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, node); err != nil {
		return fmt.Sprintf("%T", node)
	}
	return buf.String()
}
