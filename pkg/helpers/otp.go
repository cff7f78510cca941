package helpers

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
)

// ResetTokenBytes is the amount of randomness in a password reset token.
const ResetTokenBytes = 20

var codeSpan = big.NewInt(900000)

// GenVerificationCode returns a uniformly random six digit code in 100000-999999.
func GenVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// GenResetToken returns ResetTokenBytes of crypto randomness, hex encoded.
func GenResetToken() (string, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
