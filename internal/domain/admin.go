package domain

import "time"

// TOTPSecret is the provisioned second factor for the operator account.
type TOTPSecret struct {
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}
