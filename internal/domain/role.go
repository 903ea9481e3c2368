package domain

// Role identifies the workflow actor performing an operation. The engine
// enforces the required role per transition instead of trusting the caller.
type Role string

const (
	RoleSolicitante Role = "SOLICITANTE"
	RoleGerencia    Role = "GERENCIA"
	RoleAdmin       Role = "ADMIN"
	RoleProveedor   Role = "PROVEEDOR"
	RoleGestion     Role = "GESTION"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleSolicitante, RoleGerencia, RoleAdmin, RoleProveedor, RoleGestion:
		return true
	}
	return false
}
