package models

// Status tags why an engine result is, or is not, available.
type Status string

const (
	StatusOK               Status = "ok"
	StatusMissingRole      Status = "missing_role"
	StatusInsufficientData Status = "insufficient_data"
	StatusDegenerate       Status = "degenerate"
)

// Outcome is the result envelope returned at every engine boundary.
// Value is always present; when Status is not ok it holds the zero value
// or whatever partial result could still be computed.
type Outcome[T any] struct {
	Status  Status `json:"status"`
	Missing []Role `json:"missing_roles,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Value   T      `json:"value"`
}

func Available[T any](v T) Outcome[T] {
	return Outcome[T]{Status: StatusOK, Value: v}
}

// AvailableWithNote marks a produced value that carries a caveat.
func AvailableWithNote[T any](v T, note string) Outcome[T] {
	return Outcome[T]{Status: StatusOK, Value: v, Reason: note}
}

func MissingRoles[T any](roles ...Role) Outcome[T] {
	return Outcome[T]{Status: StatusMissingRole, Missing: roles, Reason: "required columns not detected"}
}

func Insufficient[T any](reason string, partial T) Outcome[T] {
	return Outcome[T]{Status: StatusInsufficientData, Reason: reason, Value: partial}
}

func Degenerate[T any](reason string, partial T) Outcome[T] {
	return Outcome[T]{Status: StatusDegenerate, Reason: reason, Value: partial}
}

func (o Outcome[T]) OK() bool {
	return o.Status == StatusOK
}

// Require returns a missing-role outcome when any role is unassigned.
func Require[T any](roles RoleMap, rs ...Role) (Outcome[T], bool) {
	if missing := roles.Missing(rs...); len(missing) > 0 {
		return MissingRoles[T](missing...), false
	}
	return Outcome[T]{}, true
}
