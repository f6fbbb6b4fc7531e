package dm

// User is the profile shape returned by lookups and login.
type User struct {
	PK         string `json:"pk"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	IsPrivate  bool   `json:"is_private"`
	IsVerified bool   `json:"is_verified"`
}

// Participant is the minimal identity carried inside conversation listings.
type Participant struct {
	PK       string `json:"pk"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}
