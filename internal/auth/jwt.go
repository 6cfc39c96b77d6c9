package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const issuer = "gamesearch"

type JWTService struct {
	accessSecret []byte
	accessTTL    time.Duration
	now          func() time.Time
}

// AccessTokenClaims identify the API client a request acts for.
type AccessTokenClaims struct {
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName,omitempty"`
	jwt.RegisteredClaims
}

func NewJWTService(accessSecret string, accessTTL time.Duration) *JWTService {
	return &JWTService{
		accessSecret: []byte(accessSecret),
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

// GenerateAccessToken creates a new access token for an authenticated client
func (s *JWTService) GenerateAccessToken(clientID, clientName string) (string, error) {
	now := s.now()
	claims := AccessTokenClaims{
		ClientID:   clientID,
		ClientName: clientName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.accessSecret)
}

// ValidateAccessToken validates and parses an access token
func (s *JWTService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.accessSecret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid || claims.ClientID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetAccessTTL returns the access token time-to-live duration
func (s *JWTService) GetAccessTTL() time.Duration {
	return s.accessTTL
}
