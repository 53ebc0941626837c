package domain

import "time"

const (
	RoleDriver = "driver"
	RoleAgency = "agency"
)

// Profile resume el perfil publico de un conductor o agencia.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	Region    string    `json:"region,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
