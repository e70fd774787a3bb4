package pathwalk

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"
)

// FuncDecl is the normalized function AST consumed by the builder. Language
// frontends produce it; the engine never inspects source syntax directly.
type FuncDecl struct {
	Name   string
	Params []Param
	Body   []Stmt
}

// Param represents a single entry parameter with an optional declared domain.
type Param struct {
	Name   string
	Domain Domain
}

// Stmt represents a normalized statement.
type Stmt interface {
	stmt()
	String() string
}

func (*AssignStmt) stmt() {}
func (*IfStmt) stmt()     {}
func (*WhileStmt) stmt()  {}
func (*ReturnStmt) stmt() {}
func (*RaiseStmt) stmt()  {}
func (*ExprStmt) stmt()   {}
func (*OpaqueStmt) stmt() {}

// AssignStmt binds the value of an expression to a variable name.
type AssignStmt struct {
	Name  string
	Value Expr
}

// String returns the string representation of the statement.
func (s *AssignStmt) String() string { return fmt.Sprintf("%s = %s", s.Name, s.Value) }

// IfStmt represents a two-way conditional. Else may be empty.
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// String returns the string representation of the statement.
func (s *IfStmt) String() string { return fmt.Sprintf("if %s", s.Cond) }

// WhileStmt represents a pre-tested loop. Frontends normalize counted loops
// into this form.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

// String returns the string representation of the statement.
func (s *WhileStmt) String() string { return fmt.Sprintf("while %s", s.Cond) }

// ReturnStmt terminates the enclosing function. Value may be nil.
type ReturnStmt struct {
	Value Expr
}

// String returns the string representation of the statement.
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.Value)
}

// RaiseStmt terminates the enclosing function with a named error kind.
type RaiseStmt struct {
	Kind  string
	Value Expr // optional payload
}

// String returns the string representation of the statement.
func (s *RaiseStmt) String() string {
	if s.Value == nil {
		return fmt.Sprintf("raise %s", s.Kind)
	}
	return fmt.Sprintf("raise %s %s", s.Kind, s.Value)
}

// ExprStmt evaluates an expression for its effect, typically a call.
type ExprStmt struct {
	X Expr
}

// String returns the string representation of the statement.
func (s *ExprStmt) String() string { return s.X.String() }

// OpaqueStmt marks a statement the frontend could not lower. It is preserved
// in the IR so that downstream stages degrade gracefully instead of failing.
type OpaqueStmt struct {
	Text string
}

// String returns the string representation of the statement.
func (s *OpaqueStmt) String() string { return fmt.Sprintf("opaque<%s>", s.Text) }

// Op represents an AST-level operator.
type Op int

// Expression operators.
const (
	OpAdd Op = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod

	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE

	OpAnd
	OpOr
	OpNot
	OpNeg
	OpIn
)

var opNames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpEQ:  "==",
	OpNE:  "!=",
	OpLT:  "<",
	OpLE:  "<=",
	OpGT:  ">",
	OpGE:  ">=",
	OpAnd: "and",
	OpOr:  "or",
	OpNot: "not",
	OpNeg: "-",
	OpIn:  "in",
}

// String returns the string representation of the operator.
func (op Op) String() string {
	if op > 0 && int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op<%d>", int(op))
}

// Expr represents a normalized expression.
type Expr interface {
	exprNode()
	String() string
}

func (*Ident) exprNode()      {}
func (*IntLit) exprNode()     {}
func (*RealLit) exprNode()    {}
func (*BoolLit) exprNode()    {}
func (*StringLit) exprNode()  {}
func (*ListLit) exprNode()    {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*IndexExpr) exprNode()  {}
func (*OpaqueExpr) exprNode() {}

// Ident refers to a variable by name.
type Ident struct {
	Name string
}

// String returns the string representation of the expression.
func (e *Ident) String() string { return e.Name }

// IntLit is an integer literal.
type IntLit struct {
	Value int64
}

// String returns the string representation of the expression.
func (e *IntLit) String() string { return fmt.Sprintf("%d", e.Value) }

// RealLit is a real literal, kept exact as a rational.
type RealLit struct {
	Value *big.Rat
}

// String returns the string representation of the expression.
func (e *RealLit) String() string { return e.Value.RatString() }

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

// String returns the string representation of the expression.
func (e *BoolLit) String() string { return fmt.Sprintf("%v", e.Value) }

// StringLit is a string literal.
type StringLit struct {
	Value string
}

// String returns the string representation of the expression.
func (e *StringLit) String() string { return fmt.Sprintf("%q", e.Value) }

// ListLit is a list literal. Requires FeatureSeq to translate.
type ListLit struct {
	Elems []Expr
}

// String returns the string representation of the expression.
func (e *ListLit) String() string {
	var buf bytes.Buffer
	buf.WriteRune('[')
	for i := range e.Elems {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(e.Elems[i].String())
	}
	buf.WriteRune(']')
	return buf.String()
}

// BinaryExpr applies an operator to two operands.
type BinaryExpr struct {
	Op Op
	X  Expr
	Y  Expr
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y)
}

// UnaryExpr applies an operator to a single operand.
type UnaryExpr struct {
	Op Op
	X  Expr
}

// String returns the string representation of the expression.
func (e *UnaryExpr) String() string {
	if e.Op == OpNot {
		return fmt.Sprintf("(not %s)", e.X)
	}
	return fmt.Sprintf("(%s%s)", e.Op, e.X)
}

// CallExpr invokes a named function. Calls resolvable inside the program are
// inlined by the explorer; the rest degrade to opaque values.
type CallExpr struct {
	Func string
	Args []Expr
}

// String returns the string representation of the expression.
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i := range e.Args {
		args[i] = e.Args[i].String()
	}
	return fmt.Sprintf("%s(%s)", e.Func, strings.Join(args, ", "))
}

// IndexExpr selects one element of a string or list.
type IndexExpr struct {
	X     Expr
	Index Expr
}

// String returns the string representation of the expression.
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.X, e.Index) }

// OpaqueExpr marks an expression the frontend could not lower.
type OpaqueExpr struct {
	Text string
}

// String returns the string representation of the expression.
func (e *OpaqueExpr) String() string { return fmt.Sprintf("opaque<%s>", e.Text) }
