package utils

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = bcrypt.DefaultCost

// MaxPasswordBytes - bcrypt не принимает пароли длиннее 72 байт.
const MaxPasswordBytes = 72

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Slugify превращает название события в сегмент ключа хранилища: "Table Tennis (Men)" -> "table-tennis-men".
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r) && r < unicode.MaxASCII:
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "misc"
	}
	return slug
}
