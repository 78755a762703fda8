package model

// Role closed set of user roles
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RolePrincipal      Role = "principal"
	RoleInnovationCell Role = "innovation_cell"
	RoleHOD            Role = "hod"
	RoleStaff          Role = "staff"
	RoleStudent        Role = "student"
)

// AllRoles every known role, in privilege order
var AllRoles = []Role{
	RoleSuperAdmin,
	RolePrincipal,
	RoleInnovationCell,
	RoleHOD,
	RoleStaff,
	RoleStudent,
}

// ParseRole converts a raw role string, rejecting unknown values
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ── capabilities ──
//
// Authorization decisions go through these methods only. Handlers and
// middleware never compare role strings directly.

func (r Role) CanCreateEvents() bool {
	return r == RoleInnovationCell || r == RoleHOD || r == RoleStaff
}

// CanSelfPublishEvents events created or submitted by this role skip review
func (r Role) CanSelfPublishEvents() bool { return r == RoleInnovationCell }

func (r Role) CanApproveEvents() bool { return r == RoleInnovationCell }

// CanManageAnyEvent update or delete events created by someone else
func (r Role) CanManageAnyEvent() bool { return r == RoleInnovationCell }

func (r Role) CanVerifyTeams() bool { return r == RoleInnovationCell }

func (r Role) CanJoinTeams() bool { return r == RoleStudent }

func (r Role) CanMentor() bool { return r == RoleStaff || r == RoleHOD }

func (r Role) CanManageDepartments() bool {
	return r == RoleSuperAdmin || r == RolePrincipal
}

func (r Role) CanManageClasses() bool {
	return r == RoleSuperAdmin || r == RolePrincipal || r == RoleHOD
}

func (r Role) CanManageUsers() bool {
	return r == RoleSuperAdmin || r == RolePrincipal || r == RoleHOD
}

// CanViewAllEvents see drafts, pending and rejected events of other creators
func (r Role) CanViewAllEvents() bool {
	return r == RoleSuperAdmin || r == RolePrincipal || r == RoleInnovationCell || r == RoleHOD
}

func (r Role) CanViewDashboard() bool {
	return r == RoleSuperAdmin || r == RolePrincipal || r == RoleInnovationCell || r == RoleHOD
}

// CanAssignRole whether r may create or promote a user into target
func (r Role) CanAssignRole(target Role) bool {
	switch r {
	case RoleSuperAdmin:
		return target.Valid()
	case RolePrincipal:
		return target != RoleSuperAdmin && target != RolePrincipal && target.Valid()
	case RoleHOD:
		return target == RoleStaff || target == RoleStudent
	default:
		return false
	}
}
