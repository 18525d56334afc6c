package rbac

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRoleUnresolvable = errors.New("unable to determine user role")
	ErrPermissionDenied = errors.New("permission denied")
)

// DeniedError names the role that lacked a permission or an allowed role.
type DeniedError struct {
	Role     Role
	Resource string
	Action   string
	Allowed  []Role
}

func (e *DeniedError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("Access denied. %s does not have %s permission for %s", e.Role, e.Action, e.Resource)
	}
	names := make([]string, len(e.Allowed))
	for i, r := range e.Allowed {
		names[i] = string(r)
	}
	return fmt.Sprintf("Access denied. Required roles: %s, got: %s", strings.Join(names, ", "), e.Role)
}

func (e *DeniedError) Unwrap() error {
	return ErrPermissionDenied
}
