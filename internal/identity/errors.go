package identity

import "errors"

// Sentinel errors surfaced by the identity client. Form handlers map
// these onto user-facing messages; ErrCancelled is informational only.
var (
	ErrInvalidCredentialsFormat = errors.New("email or password is malformed")
	ErrEmailInUse               = errors.New("email is already registered")
	ErrWeakPassword             = errors.New("password does not meet the provider's strength rules")
	ErrUserNotFound             = errors.New("no account exists for this email")
	ErrWrongPassword            = errors.New("wrong password")
	ErrCancelled                = errors.New("sign-in was cancelled by the user")
	ErrPopupBlocked             = errors.New("provider sign-in could not be started")
	ErrProviderDisabled         = errors.New("federated provider is not configured")
	ErrNetwork                  = errors.New("identity provider is unreachable")
)
