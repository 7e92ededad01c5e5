package models

import (
	"time"

	"approvalapi/workflow"
)

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  `json:"user"`
}

type RedisPayload struct {
	User         `json:"user"`
	RefreshToken string `json:"refresh-token"`
}

type User struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	Password   string    `json:"password,omitempty"`
}

type PasswordReset struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type PermissionList struct {
	Permissions []string `json:"permissions"`
}

const (
	PermDocumentsRead       = "documents:read"
	PermDocumentsPrepare    = "documents:prepare"
	PermDocumentsTransition = "documents:transition"
	PermDocumentsExport     = "documents:export"
	PermUsersManage         = "users:manage"
)

var rolePermissions = map[workflow.Role][]string{
	workflow.RoleAdmin: {
		PermDocumentsRead, PermDocumentsPrepare, PermDocumentsTransition,
		PermDocumentsExport, PermUsersManage,
	},
	workflow.RoleRequester: {
		PermDocumentsRead, PermDocumentsPrepare, PermDocumentsTransition,
		PermDocumentsExport,
	},
	workflow.RoleChecker:      {PermDocumentsRead, PermDocumentsTransition, PermDocumentsExport},
	workflow.RoleAcknowledger: {PermDocumentsRead, PermDocumentsTransition, PermDocumentsExport},
	workflow.RoleApprover:     {PermDocumentsRead, PermDocumentsTransition, PermDocumentsExport},
	workflow.RoleReceiver:     {PermDocumentsRead, PermDocumentsTransition, PermDocumentsExport},
	workflow.RoleCloser:       {PermDocumentsRead, PermDocumentsTransition, PermDocumentsExport},
}

// PermissionsFor returns the permission list granted to a role. Unknown roles
// get nothing.
func PermissionsFor(role string) []string {
	return rolePermissions[workflow.Role(role)]
}

// HasPermission reports whether the role grants the given permission.
func HasPermission(role, permission string) bool {
	for _, p := range PermissionsFor(role) {
		if p == permission {
			return true
		}
	}

	return false
}

// ValidRole reports whether role is one of the workflow roles.
func ValidRole(role string) bool {
	_, ok := rolePermissions[workflow.Role(role)]
	return ok
}
