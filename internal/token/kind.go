package token

import "fmt"

// PrincipalKind says which kind of account a token was issued to.
type PrincipalKind string

const (
	KindPlatformAdmin PrincipalKind = "admin"
	KindTenantOwner   PrincipalKind = "tenant"
	KindEndPrincipal  PrincipalKind = "user"
)

// Valid reports whether k is one of the known kinds.
func (k PrincipalKind) Valid() bool {
	switch k {
	case KindPlatformAdmin, KindTenantOwner, KindEndPrincipal:
		return true
	default:
		return false
	}
}

// ParsePrincipalKind converts a wire value into a PrincipalKind.
func ParsePrincipalKind(s string) (PrincipalKind, error) {
	k := PrincipalKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown principal kind %q", s)
	}
	return k, nil
}
