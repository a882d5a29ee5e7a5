package entities

// User is a remote site account. Pass is only ever sent, never returned.
type User struct {
	UID      Int            `json:"uid,omitempty"`
	Name     string         `json:"name"`
	Pass     string         `json:"pass,omitempty"`
	Mail     string         `json:"mail,omitempty"`
	Status   Bool           `json:"status,omitempty"`
	Created  UnixTime       `json:"created,omitempty"`
	Access   UnixTime       `json:"access,omitempty"`
	Login    UnixTime       `json:"login,omitempty"`
	Picture  string         `json:"picture,omitempty"`
	Timezone string         `json:"timezone,omitempty"`
	Roles    PHPMap[string] `json:"roles,omitempty"` // role id -> role name
}

// IsAnonymous reports whether the user is the site's anonymous account (uid 0).
func (u *User) IsAnonymous() bool {
	return u == nil || u.UID == 0
}
