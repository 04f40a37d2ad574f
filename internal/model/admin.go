package model

import "time"

// AdminRole is the role carried by an AdminUser. Roles form a strict
// ordering used by role-gated endpoints: super_admin ≥ admin ≥ moderator.
type AdminRole string

const (
    RoleSuperAdmin AdminRole = "super_admin"
    RoleAdmin      AdminRole = "admin"
    RoleModerator  AdminRole = "moderator"
)

// roleRank maps each known role to its privilege level. Unknown roles
// have no rank and therefore satisfy nothing.
var roleRank = map[AdminRole]int{
    RoleModerator:  1,
    RoleAdmin:      2,
    RoleSuperAdmin: 3,
}

// IsValid reports whether r is one of the predefined roles.
func (r AdminRole) IsValid() bool {
    _, ok := roleRank[r]
    return ok
}

// AtLeast reports whether r grants every permission of min.
func (r AdminRole) AtLeast(min AdminRole) bool {
    have, ok := roleRank[r]
    if !ok {
        return false
    }
    need, ok := roleRank[min]
    if !ok {
        return false
    }
    return have >= need
}

// ParseAdminRole converts a stored string into an AdminRole.
func ParseAdminRole(s string) (AdminRole, bool) {
    r := AdminRole(s)
    return r, r.IsValid()
}

// AdminUser represents a row in the `admin_users` table.
//
// Fields:
//  ID           – UUID primary key.
//  Email        – unique email address used as the token subject.
//  PasswordHash – bcrypt hash.
//  LastName     – family name.
//  FirstName    – given name.
//  Role         – one of super_admin, admin, moderator.
//  IsActive     – deactivated admins cannot authenticate.
//  LastLogin    – updated by the admin login operation only (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type AdminUser struct {
    ID           string     // admin_users.id
    Email        string     // admin_users.email
    PasswordHash string     // admin_users.password_hash
    LastName     string     // admin_users.last_name
    FirstName    string     // admin_users.first_name
    Role         AdminRole  // admin_users.role
    IsActive     bool       // admin_users.is_active
    LastLogin    *time.Time // admin_users.last_login
    CreatedAt    time.Time  // admin_users.created_at
    UpdatedAt    time.Time  // admin_users.updated_at
}

// AdminLog is an append-only audit record written for every
// state-mutating admin action. Optional columns use pointers so that
// NULL survives the round trip through the queue.
type AdminLog struct {
    ID          string    `json:"id"`
    AdminUserID string    `json:"admin_user_id"`
    Action      string    `json:"action"`
    TargetType  *string   `json:"target_type,omitempty"`
    TargetID    *string   `json:"target_id,omitempty"`
    Details     *string   `json:"details,omitempty"`
    IPAddress   *string   `json:"ip_address,omitempty"`
    UserAgent   *string   `json:"user_agent,omitempty"`
    CreatedAt   time.Time `json:"created_at"`
}

// Audit actions recorded in admin_logs.action.
const (
    ActionAdminLogin          = "admin_login"
    ActionApproveApplication  = "approve_application"
    ActionRejectApplication   = "reject_application"
    ActionUpdateBusinessHours = "update_business_hours"
    ActionDeleteUser          = "delete_user"
)

// Audit target types recorded in admin_logs.target_type.
const (
    TargetApplication  = "application"
    TargetUser         = "user"
    TargetAdminUser    = "admin_user"
    TargetBusinessHour = "business_hour"
)
