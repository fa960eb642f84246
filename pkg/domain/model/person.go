package model

import (
	"net/mail"
	"strings"
	"time"
)

// Person is a user known to the system, identified by e-mail
type Person struct {
	ID        string
	Email     string // always lower case
	Name      string
	Stub      bool // created implicitly by import
	CreatedAt time.Time
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail checks that s is a bare address such as "user@example.com"
func IsValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s, "@")
}

// NewPersonStub returns a person created from an e-mail address only
func NewPersonStub(email string) *Person {
	email = NormalizeEmail(email)
	name := email
	if i := strings.Index(email, "@"); i > 0 {
		name = email[:i]
	}
	return &Person{
		ID:    NewID(),
		Email: email,
		Name:  name,
		Stub:  true,
	}
}
