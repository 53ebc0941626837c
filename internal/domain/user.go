package domain

// User es la identidad autenticada que emite el proveedor de identidad externo.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	AuthProvider string `json:"auth_provider,omitempty"`
}
