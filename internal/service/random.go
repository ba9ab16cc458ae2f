package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomFunc returns a uniformly distributed integer in [0, max).
type RandomFunc func(max int64) (int64, error)

// CryptoRandom draws from crypto/rand.
func CryptoRandom(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

const (
	codeSpace    = 1_000_000
	captchaMin   = 1000
	captchaSpace = 9000
)

// NewCode returns a zero-padded six digit verification code.
func NewCode(random RandomFunc) (string, error) {
	n, err := random(codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n), nil
}

// Captcha is a generated human check: the value to display and three
// shuffled options, one of which is Code.
type Captcha struct {
	Code    string
	Options []string
}

// NewCaptcha returns a four digit captcha with two distinct decoys.
func NewCaptcha(random RandomFunc) (Captcha, error) {
	draw := func() (string, error) {
		n, err := random(captchaSpace)
		if err != nil {
			return "", fmt.Errorf("generate captcha: %w", err)
		}
		return fmt.Sprintf("%d", captchaMin+n), nil
	}

	code, err := draw()
	if err != nil {
		return Captcha{}, err
	}
	options := []string{code}
	for len(options) < 3 {
		d, err := draw()
		if err != nil {
			return Captcha{}, err
		}
		if contains(options, d) {
			continue
		}
		options = append(options, d)
	}

	// Fisher-Yates
	for i := len(options) - 1; i > 0; i-- {
		j, err := random(int64(i + 1))
		if err != nil {
			return Captcha{}, fmt.Errorf("shuffle captcha: %w", err)
		}
		options[i], options[j] = options[j], options[i]
	}
	return Captcha{Code: code, Options: options}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
