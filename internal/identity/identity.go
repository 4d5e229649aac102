// Package identity issues the opaque per-browser identity used by rooms.
// An identity is a generated human-readable display name carried in a
// signed token; the gateway stores the token in a cookie and hands only the
// verified name to the core. It is cosmetic, not an authentication boundary.
package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var adjectives = []string{
	"Brave", "Calm", "Clever", "Eager", "Gentle", "Happy", "Jolly",
	"Kind", "Lively", "Merry", "Nimble", "Proud", "Quick", "Quiet",
	"Swift", "Witty",
}

var animals = []string{
	"Badger", "Falcon", "Fox", "Heron", "Lynx", "Otter", "Owl",
	"Panda", "Raven", "Seal", "Sparrow", "Tiger", "Walrus", "Wolf",
	"Wombat", "Wren",
}

// Issuer mints and verifies identity tokens with an HMAC secret.
type Issuer struct {
	secret []byte
}

// NewIssuer creates an issuer signing with the given secret.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// Issue generates a fresh display name and returns it along with the signed
// token that carries it.
func (i *Issuer) Issue() (name, token string, err error) {
	name, err = randomName()
	if err != nil {
		return "", "", err
	}

	claims := jwt.MapClaims{
		"name": name,
		"jti":  uuid.NewString(),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return name, token, nil
}

// Verify parses a token and returns the display name it carries. Any
// failure just means the caller should issue a fresh identity.
func (i *Issuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid identity token")
	}

	name, ok := claims["name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("missing name claim")
	}
	return name, nil
}

// randomName builds an "Adjective Animal NN" display name.
func randomName() (string, error) {
	adj, err := pick(adjectives)
	if err != nil {
		return "", err
	}
	animal, err := pick(animals)
	if err != nil {
		return "", err
	}
	n, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		return "", fmt.Errorf("failed to read random number: %w", err)
	}
	return fmt.Sprintf("%s %s %02d", adj, animal, n.Int64()), nil
}

func pick(words []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", fmt.Errorf("failed to read random index: %w", err)
	}
	return words[n.Int64()], nil
}
