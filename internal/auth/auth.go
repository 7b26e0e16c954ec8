package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds token verification parameters.
type Config struct {
	Secret string
	Issuer string
}

// Claims is the signed-in identity extracted from a token.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Parse validates an HS256 JWT issued by the identity provider.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	subject, _ := claims["sub"].(string)
	if strings.TrimSpace(subject) == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	return &Claims{
		Subject:   subject,
		Email:     email,
		Name:      name,
		ExpiresAt: exp.Time,
	}, nil
}

// Issue signs a token for subject. The server never issues tokens itself; this
// backs the admin CLI and tests.
func Issue(cfg Config, c Claims, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("auth secret is empty")
	}
	now := time.Now()
	mc := jwt.MapClaims{
		"sub": c.Subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if cfg.Issuer != "" {
		mc["iss"] = cfg.Issuer
	}
	if c.Email != "" {
		mc["email"] = c.Email
	}
	if c.Name != "" {
		mc["name"] = c.Name
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString([]byte(cfg.Secret))
}

// DisplayName prefers the name, then the email, then the subject.
func (c *Claims) DisplayName() string {
	switch {
	case c == nil:
		return ""
	case c.Name != "":
		return c.Name
	case c.Email != "":
		return c.Email
	default:
		return c.Subject
	}
}
