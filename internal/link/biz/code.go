package biz

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	charset          = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	GeneratedCodeLen = 7
	maxGenerateTries = 5
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// ValidCode 短码只允许字母、数字、下划线和连字符，长度 3 到 32
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

func generateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
