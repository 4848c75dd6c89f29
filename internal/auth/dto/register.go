package dto

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterOutput deliberately carries no tokens: the account starts in
// PENDING_VERIFICATION and the verification token travels out-of-band.
type RegisterOutput struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}
