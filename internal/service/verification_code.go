package service

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// Verification codes are 12 symbols from an alphabet without 0/O, 1/I/L,
// shown in three dash separated groups: 7KQ4-M2XZ-9HPT.
const (
	codeAlphabet  = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	codeSymbols   = 12
	codeGroupSize = 4
)

var verificationCodePattern = regexp.MustCompile(`^[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}$`)

// GenerateVerificationCode draws a fresh code from crypto/rand. Uniqueness is
// enforced by the database, not here.
func GenerateVerificationCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(codeSymbols + codeSymbols/codeGroupSize - 1)
	for i := 0; i < codeSymbols; i++ {
		if i > 0 && i%codeGroupSize == 0 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeVerificationCode canonicalizes user input (case, surrounding
// space, missing dashes). ok is false when the input cannot be a code.
func NormalizeVerificationCode(raw string) (code string, ok bool) {
	code = strings.ToUpper(strings.TrimSpace(raw))
	if len(code) == codeSymbols && !strings.Contains(code, "-") {
		code = code[0:4] + "-" + code[4:8] + "-" + code[8:12]
	}
	if !verificationCodePattern.MatchString(code) {
		return "", false
	}
	return code, true
}
