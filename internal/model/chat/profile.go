package chat

const (
	DefaultName = "User"
	DefaultAge  = "Unknown"
)

// Profile is what the user told us about themselves.
type Profile struct {
	Name string `json:"name"`
	Age  string `json:"age"`
}

// DefaultProfile is used for sessions that never submitted a profile.
func DefaultProfile() Profile {
	return Profile{Name: DefaultName, Age: DefaultAge}
}

// IsDefault reports whether p is the placeholder profile.
func (p Profile) IsDefault() bool {
	return p == DefaultProfile()
}
