package model

import "strings"

// AccessLevel is the coarse role of a user account.
type AccessLevel string

const (
	AccessAdmin     AccessLevel = "admin"
	AccessTherapist AccessLevel = "therapist"
)

// Valid reports whether a is a known access level.
func (a AccessLevel) Valid() bool {
	return a == AccessAdmin || a == AccessTherapist
}

// User is a stored account. PasswordHash never leaves package db and the
// auth helpers; callers outside get a UserInfo.
type User struct {
	ID           int64       `db:"id"`
	Username     string      `db:"nome_usuario"`
	PasswordHash string      `db:"senha_hash"`
	Access       AccessLevel `db:"nivel_acesso"`
}

// Info returns the public fields of u.
func (u *User) Info() *UserInfo {
	return &UserInfo{ID: u.ID, Username: u.Username, Access: u.Access}
}

// UserInfo is the public view of a user account.
type UserInfo struct {
	ID       int64       `db:"id" json:"id" yaml:"id"`
	Username string      `db:"nome_usuario" json:"username" yaml:"username"`
	Access   AccessLevel `db:"nivel_acesso" json:"access" yaml:"access"`
}

// ValidateUsername checks a username: required, no surrounding or inner
// whitespace, at most 64 characters.
func ValidateUsername(username string) error {
	if isBlank(username) {
		return invalid("username", "is required")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return invalid("username", "must not contain whitespace")
	}
	if len(username) > 64 {
		return invalid("username", "must be 64 characters or less (got %d)", len(username))
	}
	return nil
}

// ValidateAccess checks an access level value.
func ValidateAccess(level AccessLevel) error {
	if !level.Valid() {
		return invalid("access", "must be admin or therapist (got %q)", level)
	}
	return nil
}
