package dto

// SendCodeRequest payload.
type SendCodeRequest struct {
	Email string `json:"email" form:"email"`
}

// VerifyCodeRequest payload.
type VerifyCodeRequest struct {
	Email string `json:"email" form:"email"`
	Code  string `json:"code" form:"code"`
}
