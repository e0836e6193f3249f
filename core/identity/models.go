package identity

// Provider profile kinds.
const KindStaff = "admin"

// Profile is what the identity provider reports about a logged-in user.
type Profile struct {
	Login       string
	DisplayName string
	Email       string
	Kind        string
}

// Session is the authenticated state carried in the session cookie.
// It holds no provider credentials.
type Session struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Staff bool   `json:"staff"`
}
