package reward

type signupBonusRequest struct {
	UserID       string `json:"user_id" validate:"required,uuid"`
	Email        string `json:"email" validate:"required,email"`
	ReferralCode string `json:"referral_code" validate:"omitempty,len=8,hexadecimal"`
}

type referralCodeResponse struct {
	ReferralCode string `json:"referral_code"`
}
