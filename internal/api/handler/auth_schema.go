package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Request / Response types ---

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Name     string `json:"name"     validate:"max=200"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type roleResponse struct {
	Name string `json:"name"`
}

// userResponse is the public view of an account. It never carries the
// password hash, ids or lifecycle timestamps.
type userResponse struct {
	Email string         `json:"email"`
	Name  string         `json:"name"`
	Roles []roleResponse `json:"roles"`
}

type loginResponse struct {
	userResponse
	Token string `json:"token"`
}
