package session

import (
	"strings"
)

const passwordSymbols = "@$!%*?&"

const (
	msgPasswordPolicy   = "Password must be at least 5 characters, include a number and a special symbol!"
	msgPasswordMismatch = "Passwords do not match!"
	msgAllRequired      = "All fields are required!"
	msgBothRequired     = "Both fields are required!"
	msgContactDigits    = "Contact number must be exactly 10 digits!"
)

// ValidationError is a form problem caught before anything is sent to the
// backend. Field is empty for form-level problems.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidPassword enforces the sign-in password policy: at least five
// characters drawn from letters, digits and @$!%*?&, with at least one
// digit and one of those symbols.
func ValidPassword(password string) bool {
	if len(password) < 5 {
		return false
	}
	var digit, symbol bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return digit && symbol
}

// ValidContact reports whether contact is exactly ten digits.
func ValidContact(contact string) bool {
	if len(contact) != 10 {
		return false
	}
	for _, r := range contact {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type Registration struct {
	Name     string
	Email    string
	Password string
	Confirm  string
	Contact  string
}

func (r Registration) Validate() error {
	if r.Password != r.Confirm {
		return &ValidationError{Field: "confirm", Message: msgPasswordMismatch}
	}
	if !ValidPassword(r.Password) {
		return &ValidationError{Field: "password", Message: msgPasswordPolicy}
	}
	if blank(r.Name) || blank(r.Email) || blank(r.Password) || blank(r.Contact) {
		return &ValidationError{Message: msgAllRequired}
	}
	if !ValidContact(r.Contact) {
		return &ValidationError{Field: "contact", Message: msgContactDigits}
	}
	return nil
}

func validateLogin(email, password string) error {
	if blank(email) || password == "" {
		return &ValidationError{Message: msgBothRequired}
	}
	if !ValidPassword(password) {
		return &ValidationError{Field: "password", Message: msgPasswordPolicy}
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
