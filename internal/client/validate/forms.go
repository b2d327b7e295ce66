// Package validate contains the pure form validators for the login,
// registration and password-reset forms. No side effects, no network access;
// callers block submission while the returned set is non-empty.
package validate

import (
	"regexp"
	"sort"
	"strings"
)

// Field names used as keys in Errors.
const (
	FieldIdentifier      = "identifier"
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// a deliberately loose local@domain shape, not RFC 5322
var emailRx = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Errors maps a field name to a human-readable message. An empty set means
// the form is valid. The set is rebuilt on every validation pass.
type Errors map[string]string

// Valid reports whether the form passed every applicable rule.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Error joins the field messages in a stable order, making Errors usable as
// an error value at the flow boundary.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Login validates the sign-in form. The identifier may be an email address
// or a username, so only presence is checked here; resolution happens in the
// authentication flow.
func Login(identifier, password string) Errors {
	errs := Errors{}

	if identifier == "" {
		errs[FieldIdentifier] = "Email or username is required"
	}
	validatePassword(errs, password)

	return errs
}

// Register validates the account-creation form.
func Register(username, email, password, confirmPassword string) Errors {
	errs := Errors{}

	if username == "" {
		errs[FieldUsername] = "Username is required"
	} else if len(username) < minUsernameLen {
		errs[FieldUsername] = "Username must be at least 3 characters"
	}

	validateEmail(errs, email)
	validatePassword(errs, password)

	if confirmPassword == "" {
		errs[FieldConfirmPassword] = "Please confirm your password"
	} else if password != confirmPassword {
		errs[FieldConfirmPassword] = "Passwords do not match"
	}

	return errs
}

// ResetEmail validates the password-reset form.
func ResetEmail(email string) Errors {
	errs := Errors{}
	validateEmail(errs, email)
	return errs
}

func validateEmail(errs Errors, email string) {
	if email == "" {
		errs[FieldEmail] = "Email is required"
	} else if !emailRx.MatchString(email) {
		errs[FieldEmail] = "Email is invalid"
	}
}

func validatePassword(errs Errors, password string) {
	if password == "" {
		errs[FieldPassword] = "Password is required"
	} else if len(password) < minPasswordLen {
		errs[FieldPassword] = "Password must be at least 6 characters"
	}
}
