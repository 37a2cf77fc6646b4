package models

import "encoding/json"

// Role is the semantic meaning assigned to a raw column.
type Role string

const (
	RoleDate     Role = "date"
	RoleRevenue  Role = "revenue"
	RoleProduct  Role = "product"
	RoleCustomer Role = "customer"
	RoleRegion   Role = "region"
	RoleDiscount Role = "discount"
	RolePrice    Role = "price"
	RoleQuantity Role = "quantity"
	RoleMargin   Role = "margin"
	RoleOrderID  Role = "order_id"
)

// Roles lists every role in reporting order.
var Roles = []Role{
	RoleDate, RoleRevenue, RoleProduct, RoleCustomer, RoleRegion,
	RoleDiscount, RolePrice, RoleQuantity, RoleMargin, RoleOrderID,
}

// RoleMap is the immutable role → column assignment for one dataset.
type RoleMap struct {
	cols    map[Role]string
	derived bool
}

// NewRoleMap copies cols so later changes to the argument do not leak in.
// Empty column names are treated as absent.
func NewRoleMap(cols map[Role]string, derivedRevenue bool) RoleMap {
	m := RoleMap{cols: make(map[Role]string, len(cols)), derived: derivedRevenue}
	for r, c := range cols {
		if c != "" {
			m.cols[r] = c
		}
	}
	return m
}

func (m RoleMap) Column(r Role) (string, bool) {
	c, ok := m.cols[r]
	return c, ok
}

// Has reports whether every role in rs is assigned.
func (m RoleMap) Has(rs ...Role) bool {
	for _, r := range rs {
		if _, ok := m.cols[r]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the subset of rs that is not assigned, in argument order.
func (m RoleMap) Missing(rs ...Role) []Role {
	var out []Role
	for _, r := range rs {
		if _, ok := m.cols[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// DerivedRevenue reports whether revenue was synthesized from quantity × price.
func (m RoleMap) DerivedRevenue() bool {
	return m.derived
}

func (m RoleMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]*string, len(Roles))
	for _, r := range Roles {
		if c, ok := m.cols[r]; ok {
			out[string(r)] = &c
		} else {
			out[string(r)] = nil
		}
	}
	return json.Marshal(struct {
		Columns        map[string]*string `json:"columns"`
		DerivedRevenue bool               `json:"derived_revenue"`
	}{out, m.derived})
}
