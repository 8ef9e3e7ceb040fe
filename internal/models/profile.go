package models

// Role is the application-level role of a marketplace user.
type Role string

const (
	RoleUser       Role = "user"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// UserProfile is the authoritative application-level user record,
// keyed by the identity session's email.
//
// Synthesized marks a locally fabricated placeholder built after the
// backend record could not be fetched. A synthesized role must never
// be trusted for privileged decisions; enrollment mutations re-verify
// against the server.
type UserProfile struct {
	Email           string   `json:"email"`
	Name            string   `json:"name"`
	PhotoURL        string   `json:"photoUrl"`
	Role            Role     `json:"role"`
	EnrolledClasses []string `json:"enrolledClasses"`
	Synthesized     bool     `json:"-"`
}

// IsEnrolled reports whether the profile already holds the class.
func (p *UserProfile) IsEnrolled(classID string) bool {
	for _, id := range p.EnrolledClasses {
		if id == classID {
			return true
		}
	}
	return false
}

// CanEnroll reports whether this role may enroll in classes at all.
// Admins and instructors browse but never enroll.
func (p *UserProfile) CanEnroll() bool {
	return p.Role == RoleUser
}
