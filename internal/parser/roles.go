package parser

import (
	"strings"

	"github.com/dshills/codescribe/pkg/types"
)

// roleSuffixes maps a type-name suffix to the role it implies. Order matters:
// longer suffixes come before shorter ones sharing a tail.
var roleSuffixes = []struct {
	suffix string
	role   types.Role
}{
	{"AggregateRoot", types.RoleAggregateRoot},
	{"Aggregate", types.RoleAggregateRoot},
	{"ValueObject", types.RoleValueObject},
	{"VO", types.RoleValueObject},
	{"Repository", types.RoleRepository},
	{"Repo", types.RoleRepository},
	{"Service", types.RoleService},
	{"Command", types.RoleCommand},
	{"Cmd", types.RoleCommand},
	{"Query", types.RoleQuery},
	{"Handler", types.RoleHandler},
	{"Entity", types.RoleEntity},
}

// detectRoles tags a declaration by naming convention. members is consulted
// for the identity-field heuristic used on entities.
func detectRoles(name string, members []string) []types.Role {
	var roles []types.Role
	seen := make(map[types.Role]bool)

	add := func(r types.Role) {
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}

	for _, rs := range roleSuffixes {
		if strings.HasSuffix(name, rs.suffix) {
			add(rs.role)
			break
		}
	}

	// Aggregates are also entities
	if seen[types.RoleAggregateRoot] {
		add(types.RoleEntity)
	}

	if len(roles) == 0 && hasIdentityField(members) {
		add(types.RoleEntity)
	}

	return roles
}

// hasIdentityField reports whether any member looks like an identifier field
func hasIdentityField(members []string) bool {
	for _, m := range members {
		if m == "ID" || m == "Id" || strings.HasSuffix(m, "ID") {
			return true
		}
	}
	return false
}
