package claims

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

type contextKey string

// ActorContextKey holds the request's resolved actor.
const ActorContextKey contextKey = "actor"

var ErrMalformed = errors.New("malformed token")

type Claims struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	jwt.StandardClaims
}

// Decode reads the payload of a bearer token without checking its signature.
// Only the issuing server can verify it, so the result is for display only.
func Decode(token string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c, nil
}

var ErrInvalid = errors.New("invalid token")

// Issuer signs and verifies the stub server's HS256 tokens. The token id
// names the server-side session so it can be revoked.
type Issuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

func (i *Issuer) Sign(userID, email, sessionID string) (string, error) {
	now := i.now().UTC()
	c := &Claims{}
	c.User.ID = userID
	c.User.Email = email
	c.Subject = userID
	c.Id = sessionID
	c.IssuedAt = now.Unix()
	c.ExpiresAt = now.Add(i.TTL).Unix()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.Secret)
}

// Verify checks signature and expiry. A token that does not even parse is
// ErrMalformed; a well-formed token that fails checks is ErrInvalid.
func (i *Issuer) Verify(token string) (*Claims, error) {
	c := &Claims{}
	parser := &jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	_, err := parser.ParseWithClaims(token, c, func(*jwt.Token) (interface{}, error) {
		return i.Secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.User.ID == "" || c.Id == "" {
		return nil, fmt.Errorf("%w: missing user or session", ErrInvalid)
	}
	return c, nil
}
