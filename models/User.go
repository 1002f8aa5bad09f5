package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// User is an authenticated account. Messenger identity is the string ID;
// the core never reads a global current user, callers pass it explicitly.
type User struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"-"`
	AvatarURL   string `json:"avatarURL"`

	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`

	Role string `json:"role" gorm:"type:varchar(20);default:user;index"` // user, admin

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalJSON flattens the PushTokens JSON column into a string slice.
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		PushTokens []string `json:"pushTokens,omitempty"`
		*Alias
	}{
		PushTokens: []string{},
		Alias:      (*Alias)(u),
	}

	if u.PushTokens != nil {
		var pushTokens []string
		if err := json.Unmarshal(u.PushTokens, &pushTokens); err == nil {
			aux.PushTokens = pushTokens
		}
	}

	return json.Marshal(aux)
}
