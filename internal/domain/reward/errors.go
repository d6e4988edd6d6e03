package reward

import "errors"

var (
	// ErrProfileNotFound is returned when no reward profile exists for the user
	ErrProfileNotFound = errors.New("reward profile not found")

	// ErrInvalidReferralCode is returned when the supplied referral code does
	// not resolve to a profile
	ErrInvalidReferralCode = errors.New("invalid referral code")

	// ErrSelfReferral is returned when a user tries to redeem their own code
	ErrSelfReferral = errors.New("cannot refer yourself")

	// ErrReferralCodeTaken signals a generated code collided with an existing
	// one; callers regenerate and retry
	ErrReferralCodeTaken = errors.New("referral code already taken")

	ErrInternal = errors.New("internal reward error")
)
