package dto

type ForgotPasswordInput struct {
	Email string `json:"email"`
}

type ResetPasswordInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type VerifyEmailInput struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
