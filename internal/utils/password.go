package utils

import "golang.org/x/crypto/bcrypt"

var bcryptCost = bcrypt.DefaultCost

// SetBcryptCost lowers the hashing cost, for tests.
func SetBcryptCost(cost int) {
	bcryptCost = cost
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
