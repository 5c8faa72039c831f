package app

import (
	"regexp"
	"sort"
	"strings"
)

// Form field names shared with the templates
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidationErrors maps form fields to the message shown beside them.
// A submission with validation errors never reaches the upstream.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (v ValidationErrors) add(field, msg string) {
	if msg != "" {
		v[field] = msg
	}
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// isFullName requires at least a first and a last name
func isFullName(name string) bool {
	parts := strings.Split(strings.TrimSpace(name), " ")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

func validateEmail(email string) string {
	if !emailPattern.MatchString(email) {
		return "Enter a valid email"
	}
	return ""
}

func validatePassword(password string) string {
	if len(password) < minPasswordLength {
		return "Password must be at least 6 characters"
	}
	return ""
}

func validateConfirmation(password, confirm string) string {
	if password != confirm {
		return "Passwords do not match"
	}
	return ""
}

// ValidateSignUp checks the signup form
func ValidateSignUp(name, email, password, confirm string) error {
	v := ValidationErrors{}
	if !isFullName(name) {
		v.add(FieldName, "Please enter both first and last names.")
	}
	v.add(FieldEmail, validateEmail(email))
	v.add(FieldPassword, validatePassword(password))
	v.add(FieldConfirmPassword, validateConfirmation(password, confirm))
	return v.err()
}

// ValidateProfileUpdate checks the account form. The password is optional;
// when present it must be long enough and confirmed.
func ValidateProfileUpdate(name, password, confirm string) error {
	v := ValidationErrors{}
	if strings.TrimSpace(name) == "" {
		v.add(FieldName, "Name is required")
	}
	if password != "" {
		v.add(FieldPassword, validatePassword(password))
		v.add(FieldConfirmPassword, validateConfirmation(password, confirm))
	}
	return v.err()
}
