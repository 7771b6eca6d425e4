package enums

import "fmt"

// MemberRole is the portal role carried in the access token.
type MemberRole string

const (
	RoleMember   MemberRole = "member"
	RoleOperator MemberRole = "operator"
	RoleAdmin    MemberRole = "admin"
)

var validMemberRoles = []MemberRole{RoleMember, RoleOperator, RoleAdmin}

func (r MemberRole) String() string {
	return string(r)
}

func (r MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
