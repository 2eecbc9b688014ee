package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const downloadAudience = "export-download"

type downloadClaims struct {
	File string `json:"file"`
	jwt.RegisteredClaims
}

// SignedURLSigner issues the tokens that make up export download links. The
// token alone authorises a download, so it carries the job id and file name.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner returns a signer whose tokens live for ttl.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a download token for file.
func (s *SignedURLSigner) Generate(exportID, file string) (string, time.Time, error) {
	if exportID == "" || file == "" {
		return "", time.Time{}, errors.New("export id and file are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	issued := s.now()
	expiresAt := issued.Add(s.ttl)
	claims := downloadClaims{
		File: file,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        exportID,
			Audience:  jwt.ClaimStrings{downloadAudience},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return token, expiresAt.Truncate(time.Second), nil
}

// Parse verifies token and returns what it references. allowExpired skips the
// expiry check so cleanup can still locate files behind stale links.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (exportID, file string, expiresAt time.Time, err error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, jwt.WithAudience(downloadAudience), jwt.WithExpirationRequired())
	}
	claims := &downloadClaims{}
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", "", time.Time{}, errors.New("token expired")
	case err != nil || !parsed.Valid:
		return "", "", time.Time{}, errors.New("invalid download token")
	}
	if claims.ID == "" || claims.File == "" || claims.ExpiresAt == nil {
		return "", "", time.Time{}, errors.New("invalid download token")
	}
	return claims.ID, claims.File, claims.ExpiresAt.Time, nil
}
