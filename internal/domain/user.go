package domain

import "time"

// Operator es una persona autorizada a usar el kiosko.
type Operator struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Nombre    string    `json:"displayName"`
	FotoURL   string    `json:"photoURL,omitempty"`
	Password  string    `json:"-"`
	Role      string    `json:"role"` // "admin" u "operador"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterOperatorDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Nombre   string `json:"displayName" binding:"required,min=2,max=80"`
	Password string `json:"password" binding:"required,min=6,max=100"`
	Role     string `json:"role,omitempty"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token    string   `json:"token"`
	Operador Identity `json:"operador"`
}

// Identity es lo que el panel necesita saber del operador conectado.
type Identity struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}
