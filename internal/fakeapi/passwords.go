package fakeapi

import (
	"golang.org/x/crypto/bcrypt"
)

// Passwords are stored the way the real API stores them so the login handler exercises a
// genuine hash comparison.

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
