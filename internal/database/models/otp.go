package models

const (
	OTPTypeSignup   = "signup"
	OTPTypePassword = "password"
	OTPTypeLink     = "link"
)

// OTP holds the single outstanding one-time code for an email. Code is
// stored as "{email}-{digits}".
type OTP struct {
	Base
	Email   string `gorm:"uniqueIndex;not null" json:"email"`
	Code    string `gorm:"column:otp;uniqueIndex;not null" json:"-"`
	IsValid bool   `gorm:"not null;default:false" json:"is_valid"`
}

func (OTP) TableName() string {
	return "otps"
}
