package service

import (
	"regexp"
	"unicode/utf8"

	"github.com/atinyakov/nilavanti/internal/models"
)

const (
	minPasswordLength = 6
	// bcrypt refuses longer inputs.
	maxPasswordBytes = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func validateRegistration(req RegisterRequest) error {
	v := models.NewValidationError()
	switch {
	case req.Username == "":
		v.Add("username", "Username is required")
	case !usernamePattern.MatchString(req.Username):
		v.Add("username", "Username must be 3-32 letters, digits, '_', '.' or '-'")
	}
	checkPassword(v, "password", req.Password, req.ConfirmPassword)
	if v.Empty() {
		return nil
	}
	return v
}

// checkPassword applies the password rules to pw under field and checks
// that confirm repeats it.
func checkPassword(v *models.ValidationError, field, pw, confirm string) {
	switch {
	case pw == "":
		v.Add(field, "Password is required")
	case utf8.RuneCountInString(pw) < minPasswordLength:
		v.Add(field, "Password must be at least 6 characters")
	case len(pw) > maxPasswordBytes:
		v.Add(field, "Password must be at most 72 bytes")
	}
	if pw != confirm {
		v.Add("confirmPassword", "Passwords do not match")
	}
}
