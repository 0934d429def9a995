package domain

// TokenData is the credential produced by a successful authentication and
// persisted as the cached record.
type TokenData struct {
	User  string `json:"user"`
	Token string `json:"token"`
	Scope string `json:"scope,omitempty"`
}

// Complete reports whether both the user and the token are set.
func (t TokenData) Complete() bool {
	return t.User != "" && t.Token != ""
}
