package models

// IdentitySession is the authenticated principal as reported by the
// identity provider. Each provider callback replaces it wholesale; it
// is nil while signed out.
type IdentitySession struct {
	SubjectID     string `json:"subjectId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	EmailVerified bool   `json:"emailVerified"`
}

// SessionPhase is the lifecycle phase observed by route guards and pages.
type SessionPhase string

const (
	// PhaseResolving holds from process start until the first identity
	// callback has been processed.
	PhaseResolving     SessionPhase = "resolving"
	PhaseAnonymous     SessionPhase = "anonymous"
	PhaseAuthenticated SessionPhase = "authenticated"
)

// SessionState is the unified session value published by the session
// bridge. Token is nil in the degraded tokenless-authenticated case.
type SessionState struct {
	Phase    SessionPhase     `json:"phase"`
	Identity *IdentitySession `json:"identity,omitempty"`
	Token    *Token           `json:"-"`
}

// Authenticated reports whether a signed-in identity is present.
func (s SessionState) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.Identity != nil
}

// Email returns the active session's email, or "" when signed out.
func (s SessionState) Email() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Email
}
