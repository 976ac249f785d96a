package handler

const (
	errInternalServer    = "Internal server error"
	errEmailTaken        = "An account with this email already exists"
	errTokenInvalid      = "Token is invalid or expired"
	errCredentialInvalid = "Invalid credentials"
	errFileNotFound      = "File not found"
)
