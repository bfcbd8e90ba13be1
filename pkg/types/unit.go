package types

import "strings"

// Language tags understood by the extractor
const (
	LanguageGo = "go"
)

// SourceUnit is one file discovered under a project root
type SourceUnit struct {
	ID       string // Slash-separated path relative to the project root
	Path     string // Absolute path on disk
	Text     string
	Language string
}

// DeclarationKind classifies a declaration
type DeclarationKind string

const (
	DeclStruct    DeclarationKind = "struct"
	DeclInterface DeclarationKind = "interface"
	DeclType      DeclarationKind = "type"
	// DeclExternal marks a receiver type whose definition lives in another unit.
	DeclExternal DeclarationKind = "external"
)

// Role is a naming-convention tag attached to a declaration
type Role string

const (
	RoleAggregateRoot Role = "aggregate_root"
	RoleEntity        Role = "entity"
	RoleValueObject   Role = "value_object"
	RoleRepository    Role = "repository"
	RoleService       Role = "service"
	RoleCommand       Role = "command"
	RoleQuery         Role = "query"
	RoleHandler       Role = "handler"
)

// Declaration is a named type together with the names of its members
type Declaration struct {
	Name        string          `json:"name"`
	Kind        DeclarationKind `json:"kind"`
	MemberNames []string        `json:"member_names"`
	Roles       []Role          `json:"roles,omitempty"`
}

// HasRole reports whether the declaration was tagged with r
func (d *Declaration) HasRole(r Role) bool {
	for _, role := range d.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// Callable is a top-level function
type Callable struct {
	Name           string   `json:"name"`
	ParameterNames []string `json:"parameter_names"`
	SizeMetric     int      `json:"size_metric"` // Syntax nodes reachable from the declaration
}

// FactRecord is the structural extraction of one SourceUnit
type FactRecord struct {
	UnitID       string        `json:"unit_id"`
	Language     string        `json:"language"`
	Package      string        `json:"package,omitempty"`
	Declarations []Declaration `json:"declarations"`
	Callables    []Callable    `json:"callables"`
	References   []string      `json:"references"`
	DocComments  []string      `json:"doc_comments"`
}

// DeclarationNames returns declaration names in source order
func (fr *FactRecord) DeclarationNames() []string {
	names := make([]string, 0, len(fr.Declarations))
	for _, d := range fr.Declarations {
		names = append(names, d.Name)
	}
	return names
}

// CallableNames returns callable names in source order
func (fr *FactRecord) CallableNames() []string {
	names := make([]string, 0, len(fr.Callables))
	for _, c := range fr.Callables {
		names = append(names, c.Name)
	}
	return names
}

// IsEmpty returns true if the unit declares nothing
func (fr *FactRecord) IsEmpty() bool {
	return len(fr.Declarations) == 0 && len(fr.Callables) == 0
}

// Validate checks structural invariants of the record
func (fr *FactRecord) Validate() error {
	if strings.TrimSpace(fr.UnitID) == "" {
		return ErrMissingUnitID
	}

	for _, d := range fr.Declarations {
		if d.Name == "" {
			return ErrEmptyDeclaration
		}
	}

	for _, c := range fr.Callables {
		if c.Name == "" {
			return ErrEmptyCallable
		}
		if c.SizeMetric < 0 {
			return ErrNegativeSize
		}
	}

	return nil
}
