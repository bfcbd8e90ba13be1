package parser

import (
	"testing"

	"github.com/dshills/codescribe/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRoles(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		want    []types.Role
	}{
		{"OrderAggregate", nil, []types.Role{types.RoleAggregateRoot, types.RoleEntity}},
		{"OrderItemVO", nil, []types.Role{types.RoleValueObject}},
		{"MoneyValueObject", nil, []types.Role{types.RoleValueObject}},
		{"OrderRepository", nil, []types.Role{types.RoleRepository}},
		{"UserRepo", nil, []types.Role{types.RoleRepository}},
		{"BillingService", nil, []types.Role{types.RoleService}},
		{"PlaceOrderCommand", nil, []types.Role{types.RoleCommand}},
		{"GetOrderQuery", nil, []types.Role{types.RoleQuery}},
		{"OrderPlacedHandler", nil, []types.Role{types.RoleHandler}},
		{"CustomerEntity", nil, []types.Role{types.RoleEntity}},
		{"Customer", []string{"ID", "Name"}, []types.Role{types.RoleEntity}},
		{"Config", []string{"Path"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectRoles(tt.name, tt.members))
		})
	}
}

func TestExtract_RolesFromSource(t *testing.T) {
	content := `package sample

import "context"

type OrderAggregate struct {
	ID     int64
	Status string
}

type OrderRepository interface {
	Save(ctx context.Context, order *OrderAggregate) error
}

type OrderService struct {
	repo OrderRepository
}
`

	p := New()
	facts, err := p.Extract(goUnit("sample.go", content))
	require.NoError(t, err)

	assert.True(t, findDecl(t, facts, "OrderAggregate").HasRole(types.RoleAggregateRoot))
	assert.True(t, findDecl(t, facts, "OrderRepository").HasRole(types.RoleRepository))
	assert.True(t, findDecl(t, facts, "OrderService").HasRole(types.RoleService))
	assert.False(t, findDecl(t, facts, "OrderService").HasRole(types.RoleEntity))
}
