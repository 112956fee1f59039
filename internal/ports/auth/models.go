package auth

// Claims representa la información extraída del token.
// TenantID identifica la organización dueña de los datos en el registro.
type Claims struct {
	UserID   string
	Email    string
	TenantID string
}
