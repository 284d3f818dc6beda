package model

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Requestor is the authenticated caller of a single request.
type Requestor struct {
	UserID int64
	Role   string
}

func (r Requestor) IsSystemAdmin() bool {
	return r.Role == RoleAdmin
}
