package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens guard the admin stats endpoints only; players are identified
// per-connection and never authenticate.
type Tokens struct {
	secret []byte
}

func New(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

func (t *Tokens) Generate(subject string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{
			"sub": subject,
			"exp": time.Now().Add(time.Hour * 24).Unix(),
		})

	return token.SignedString(t.secret)
}

func (t *Tokens) Check(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	return token.Claims.GetSubject()
}
