package models

import "gorm.io/datatypes"

type ContactStatus string

const (
	ContactStatusOnline  ContactStatus = "online"
	ContactStatusOffline ContactStatus = "offline"
	ContactStatusAway    ContactStatus = "away"
)

type ContactRole string

const (
	ContactRoleOwner  ContactRole = "owner"
	ContactRoleTenant ContactRole = "tenant"
	ContactRoleAgent  ContactRole = "agent"
)

// Contact is an entry in the directory used to originate new chats.
type Contact struct {
	ID     string        `json:"id" gorm:"primaryKey;size:36"`
	Name   string        `json:"name" gorm:"size:128"`
	Phone  string        `json:"phone,omitempty" gorm:"size:32"`
	Status ContactStatus `json:"status" gorm:"size:16"`
	Role   ContactRole   `json:"role,omitempty" gorm:"size:16"`
	// Properties holds the IDs of listings this contact is associated with.
	Properties datatypes.JSON `json:"properties,omitempty" gorm:"type:jsonb"`
	LastSeen   int64          `json:"lastSeen,omitempty"`
}
