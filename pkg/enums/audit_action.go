package enums

import "fmt"

// AuditAction identifies a security-relevant event recorded in the audit log.
type AuditAction string

const (
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionRegister         AuditAction = "REGISTER"
	AuditActionLogout           AuditAction = "LOGOUT"
	AuditActionDeleteUser       AuditAction = "DELETE_USER"
	AuditActionUpdateUser       AuditAction = "UPDATE_USER"
	AuditActionChangePassword   AuditAction = "CHANGE_PASSWORD"
	AuditActionToggleActivation AuditAction = "TOGGLE_ACTIVATION"
	AuditActionOther            AuditAction = "OTHER"
)

var validAuditActions = []AuditAction{
	AuditActionLogin,
	AuditActionRegister,
	AuditActionLogout,
	AuditActionDeleteUser,
	AuditActionUpdateUser,
	AuditActionChangePassword,
	AuditActionToggleActivation,
	AuditActionOther,
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
