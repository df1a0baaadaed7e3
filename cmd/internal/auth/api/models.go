package authapi

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}
