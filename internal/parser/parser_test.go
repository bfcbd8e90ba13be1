package parser

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dshills/codescribe/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goUnit(id, text string) types.SourceUnit {
	return types.SourceUnit{ID: id, Path: "/tmp/" + id, Text: text, Language: types.LanguageGo}
}

func findDecl(t *testing.T, facts *types.FactRecord, name string) types.Declaration {
	t.Helper()
	for _, d := range facts.Declarations {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("declaration %q not found", name)
	return types.Declaration{}
}

func TestNew(t *testing.T) {
	p := New()
	assert.NotNil(t, p)
}

func TestExtract_ReusedParserIsStateless(t *testing.T) {
	p := New()
	broken := "package broken\n\nfunc Oops( {\n"

	var first *types.ParseError
	_, err := p.Extract(goUnit("a.go", broken))
	require.ErrorAs(t, err, &first)

	// Many files later, positions are still relative to the unit itself
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Extract(goUnit(fmt.Sprintf("f%d.go", i), "package demo\n\nfunc F() {}\n"))
		}()
	}
	wg.Wait()

	var again *types.ParseError
	_, err = p.Extract(goUnit("a.go", broken))
	require.ErrorAs(t, err, &again)
	assert.Equal(t, first.Line, again.Line)
	assert.Equal(t, first.Column, again.Column)
	assert.Equal(t, first.Message, again.Message)
}

func TestExtract_ValidGoFile(t *testing.T) {
	content := `// Package users manages accounts.
package users

import (
	"fmt"
	str "strings"
)

// User represents a user in the system
type User struct {
	ID   int
	Name string
}

// GetName returns the user's name
func (u *User) GetName() string {
	return u.Name
}

// NewUser creates a new user
func NewUser(id int, name string) *User {
	return &User{ID: id, Name: str.TrimSpace(fmt.Sprint(name))}
}
`

	p := New()
	facts, err := p.Extract(goUnit("users/user.go", content))
	require.NoError(t, err)
	require.NoError(t, facts.Validate())

	assert.Equal(t, "users/user.go", facts.UnitID)
	assert.Equal(t, "users", facts.Package)
	assert.Equal(t, []string{`"fmt"`, `str "strings"`}, facts.References)

	require.Len(t, facts.Declarations, 1)
	user := facts.Declarations[0]
	assert.Equal(t, "User", user.Name)
	assert.Equal(t, types.DeclStruct, user.Kind)
	assert.Equal(t, []string{"ID", "Name", "GetName"}, user.MemberNames)
	assert.True(t, user.HasRole(types.RoleEntity))

	require.Len(t, facts.Callables, 1)
	assert.Equal(t, "NewUser", facts.Callables[0].Name)
	assert.Equal(t, []string{"id", "name"}, facts.Callables[0].ParameterNames)
	assert.Positive(t, facts.Callables[0].SizeMetric)

	assert.Equal(t, []string{
		"Package users manages accounts.",
		"User represents a user in the system",
		"GetName returns the user's name",
		"NewUser creates a new user",
	}, facts.DocComments)
}

func TestExtract_SyntaxError(t *testing.T) {
	content := `package main

func incomplete( {
}
`

	p := New()
	facts, err := p.Extract(goUnit("broken.go", content))

	require.Error(t, err)
	assert.Nil(t, facts)

	var perr *types.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.go", perr.Unit)
	assert.Equal(t, 3, perr.Line)
	assert.Contains(t, err.Error(), "broken.go")
}

func TestExtract_UnsupportedLanguage(t *testing.T) {
	p := New()
	_, err := p.Extract(types.SourceUnit{ID: "a.py", Text: "def f(): pass", Language: "python"})

	var perr *types.ParseError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, types.ErrUnsupportedLang)
}

func TestExtract_ZeroDeclarations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"package clause only", "package empty\n"},
		{"imports and vars", "package empty\n\nimport _ \"embed\"\n\nvar x = 1\n"},
		{"blank file", ""},
		{"whitespace", "  \n\t\n"},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, err := p.Extract(goUnit("empty.go", tt.content))
			require.NoError(t, err)
			require.NotNil(t, facts)
			assert.NotNil(t, facts.Declarations)
			assert.NotNil(t, facts.Callables)
			assert.Empty(t, facts.Declarations)
			assert.Empty(t, facts.Callables)
			assert.True(t, facts.IsEmpty())
		})
	}
}

func TestExtract_InterfaceMembers(t *testing.T) {
	content := `package io

// Reader reads data
type Reader interface {
	Read(p []byte) (n int, err error)
	Close() error
}

type ReadWriter interface {
	Reader
	Write(p []byte) (int, error)
}
`

	p := New()
	facts, err := p.Extract(goUnit("io.go", content))
	require.NoError(t, err)

	reader := findDecl(t, facts, "Reader")
	assert.Equal(t, types.DeclInterface, reader.Kind)
	assert.Equal(t, []string{"Read", "Close"}, reader.MemberNames)

	rw := findDecl(t, facts, "ReadWriter")
	assert.Equal(t, []string{"Reader", "Write"}, rw.MemberNames)
}

func TestExtract_MethodsOnExternalReceiver(t *testing.T) {
	content := `package svc

func (s *Server) Start() error { return nil }
func (s *Server) Stop() {}
func (c Cache[K, V]) Get(k K) V { var v V; return v }
`

	p := New()
	facts, err := p.Extract(goUnit("svc.go", content))
	require.NoError(t, err)

	require.Len(t, facts.Declarations, 2)
	assert.Equal(t, "Server", facts.Declarations[0].Name)
	assert.Equal(t, types.DeclExternal, facts.Declarations[0].Kind)
	assert.Equal(t, []string{"Start", "Stop"}, facts.Declarations[0].MemberNames)
	assert.Equal(t, "Cache", facts.Declarations[1].Name)
	assert.Equal(t, []string{"Get"}, facts.Declarations[1].MemberNames)
	assert.Empty(t, facts.Callables)
}

func TestExtract_MethodBeforeTypeDeclaration(t *testing.T) {
	content := `package svc

func (w *Worker) Run() {}

type Worker struct {
	jobs chan int
}
`

	p := New()
	facts, err := p.Extract(goUnit("worker.go", content))
	require.NoError(t, err)

	require.Len(t, facts.Declarations, 1)
	assert.Equal(t, types.DeclStruct, facts.Declarations[0].Kind)
	assert.Equal(t, []string{"jobs", "Run"}, facts.Declarations[0].MemberNames)
}

func TestExtract_UnnamedParameters(t *testing.T) {
	p := New()
	facts, err := p.Extract(goUnit("f.go", "package f\n\nfunc handler(int, string) {}\n"))
	require.NoError(t, err)

	require.Len(t, facts.Callables, 1)
	assert.Equal(t, []string{"_", "_"}, facts.Callables[0].ParameterNames)
}

func TestExtract_SizeMetricMonotonic(t *testing.T) {
	content := `package calc

func small() {}

func medium(a int) int {
	return a + 1
}

func large(values []int) int {
	total := 0
	for _, v := range values {
		if v > 0 {
			total += v * 2
		} else {
			total -= v
		}
	}
	return total
}
`

	p := New()
	facts, err := p.Extract(goUnit("calc.go", content))
	require.NoError(t, err)
	require.Len(t, facts.Callables, 3)

	small, medium, large := facts.Callables[0], facts.Callables[1], facts.Callables[2]
	assert.Less(t, small.SizeMetric, medium.SizeMetric)
	assert.Less(t, medium.SizeMetric, large.SizeMetric)
}

func TestExtract_Deterministic(t *testing.T) {
	content := `package d

type A struct{ X int }
type B interface{ M() }
func (a A) Do() {}
func F(x, y int) {}
`

	p := New()
	first, err := p.Extract(goUnit("d.go", content))
	require.NoError(t, err)
	second, err := New().Extract(goUnit("d.go", content))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtract_GroupedDocComments(t *testing.T) {
	content := `package g

type (
	// First is first
	First struct{}
	// Second is second
	Second struct{}
)
`

	p := New()
	facts, err := p.Extract(goUnit("g.go", content))
	require.NoError(t, err)

	assert.Equal(t, []string{"First is first", "Second is second"}, facts.DocComments)
	assert.Equal(t, []string{"First", "Second"}, facts.DeclarationNames())
}

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, types.LanguageGo, LanguageForPath("a/b/c.go"))
	assert.Equal(t, types.LanguageGo, LanguageForPath("UPPER.GO"))
	assert.Equal(t, "", LanguageForPath("script.py"))
	assert.Equal(t, []string{types.LanguageGo}, Languages())
}
