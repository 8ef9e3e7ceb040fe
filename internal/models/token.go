package models

// Token is the opaque bearer credential issued by the marketplace
// backend in exchange for an identity session. IssuedForEmail records
// the session the backend issued it for; a stored token whose email no
// longer matches the live session is stale and must be cleared.
type Token struct {
	Value          string `json:"value"`
	IssuedForEmail string `json:"issuedForEmail"`
}

// MatchesEmail reports whether the token was issued for the given email.
func (t *Token) MatchesEmail(email string) bool {
	return t != nil && email != "" && t.IssuedForEmail == email
}
