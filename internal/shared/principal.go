package shared

import "strconv"

// Role names a class of signed-in user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleCustomer Role = "customer"
)

const (
	sessionRoleKey = "role"
	sessionIDKey   = "principal_id"
	sessionNameKey = "principal_name"
)

// Principal is the signed-in user as recorded in the session.
type Principal struct {
	Role Role
	ID   int64
	Name string
}

// HomePath is the dashboard each role lands on after login.
func (p Principal) HomePath() string {
	switch p.Role {
	case RoleAdmin:
		return "/admin"
	case RoleEmployee:
		return "/employee"
	case RoleCustomer:
		return "/customer"
	}
	return "/"
}

// Owner returns the bag/list owner for the principal. Admins own nothing.
func (p Principal) Owner() (Owner, bool) {
	switch p.Role {
	case RoleCustomer:
		return Owner{Kind: OwnerCustomer, ID: p.ID}, true
	case RoleEmployee:
		return Owner{Kind: OwnerEmployee, ID: p.ID}, true
	}
	return Owner{}, false
}

// SetPrincipal records the signed-in user.
func (s *Session) SetPrincipal(p Principal) {
	s.Set(sessionRoleKey, string(p.Role))
	s.Set(sessionIDKey, strconv.FormatInt(p.ID, 10))
	s.Set(sessionNameKey, p.Name)
}

// Principal returns the signed-in user, if any.
func (s *Session) Principal() (Principal, bool) {
	if s == nil {
		return Principal{}, false
	}
	role := Role(s.Get(sessionRoleKey))
	if role == "" {
		return Principal{}, false
	}
	id, err := strconv.ParseInt(s.Get(sessionIDKey), 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, false
	}
	return Principal{Role: role, ID: id, Name: s.Get(sessionNameKey)}, true
}

// OwnerKind selects which column identifies a bag or list owner.
type OwnerKind int

const (
	OwnerCustomer OwnerKind = iota + 1
	OwnerEmployee
)

// Owner identifies whose bag or shopping list a row belongs to.
type Owner struct {
	Kind OwnerKind
	ID   int64
}

// Column is the owner column name. Values are fixed, safe for SQL text.
func (o Owner) Column() string {
	if o.Kind == OwnerEmployee {
		return "employee_id"
	}
	return "customer_id"
}

// CustomerID returns the customer ID or nil.
func (o Owner) CustomerID() *int64 {
	if o.Kind != OwnerCustomer {
		return nil
	}
	id := o.ID
	return &id
}

// EmployeeID returns the employee ID or nil.
func (o Owner) EmployeeID() *int64 {
	if o.Kind != OwnerEmployee {
		return nil
	}
	id := o.ID
	return &id
}
