package notify

import (
	"errors"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LinkSigner signs and verifies the token embedded in confirmation links.
// HS256 only; the secret is shared with whatever endpoint serves the link.
type LinkSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// LinkClaims is the confirmation-link token body.
type LinkClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	CID   string `json:"cid"`
	jwt.RegisteredClaims
}

// NewLinkSigner validates the secret and returns a signer.
func NewLinkSigner(secret []byte, issuer string, ttl time.Duration) (*LinkSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("link signer requires a secret")
	}
	if ttl <= 0 {
		return nil, errors.New("link signer requires a positive ttl")
	}
	return &LinkSigner{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// Sign mints the token for one notification.
func (s *LinkSigner) Sign(uid, email, correlationID string, now time.Time) (string, error) {
	claims := LinkClaims{
		UID:   uid,
		Email: email,
		CID:   correlationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies a link token and returns its claims.
func (s *LinkSigner) Parse(token string) (*LinkClaims, error) {
	var claims LinkClaims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// BuildLink renders the confirmation URL. The email rides in the query in
// the clear so the recipient-side page can display it; the token carries
// the verifiable copy.
func BuildLink(baseURL, email, service, token string) string {
	q := url.Values{}
	q.Set("email", email)
	if service != "" {
		q.Set("service", service)
	}
	q.Set("token", token)
	return baseURL + "?" + q.Encode()
}
