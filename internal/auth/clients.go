package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var ErrInvalidCredentials = errors.New("invalid client credentials")

// Client is a registered API client.
type Client struct {
	ID         string
	Name       string
	SecretHash string
}

// ClientRegistry checks client credentials against bcrypt hashes.
type ClientRegistry struct {
	clients map[string]Client
	// dummyHash is compared against for unknown ids so every failure
	// costs one bcrypt comparison.
	dummyHash []byte
}

func NewClientRegistry(clients []Client) *ClientRegistry {
	r := &ClientRegistry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.ID] = c
	}
	r.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unknown-client"), bcrypt.MinCost)
	return r
}

// Authenticate returns the client when secret matches its hash.
func (r *ClientRegistry) Authenticate(id, secret string) (Client, error) {
	c, ok := r.clients[id]
	if !ok || id == "" {
		_ = bcrypt.CompareHashAndPassword(r.dummyHash, []byte(secret))
		return Client{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)); err != nil {
		return Client{}, ErrInvalidCredentials
	}
	return c, nil
}

func (r *ClientRegistry) Len() int {
	return len(r.clients)
}

// HashSecret hashes a client secret for the clients section of the config.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
