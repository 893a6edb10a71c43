package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// encodedHeader is the base64url form of {"alg":"HS256","typ":"JWT"}.
// Every token this package mints carries the same header, so it is
// encoded once instead of per call.
const encodedHeader = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"

const tokenTTL = 24 * time.Hour

var (
	errMalformedToken = errors.New("malformed token")
	errBadSignature   = errors.New("signature mismatch")
	errTokenExpired   = errors.New("token expired")
)

// JWTClaims is the payload carried inside a signed token.
type JWTClaims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

// JWT mints and verifies HS256 tokens with a shared secret.
type JWT struct {
	secret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

// Generate signs a token for the given user, valid for 24 hours.
func (j *JWT) Generate(userID int64, email string) (string, error) {
	now := time.Now()
	payload, err := json.Marshal(JWTClaims{
		UserID: userID,
		Email:  email,
		Iat:    now.Unix(),
		Exp:    now.Add(tokenTTL).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}

	signingInput := encodedHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	return signingInput + "." + j.signature(signingInput), nil
}

// Validate checks the signature and expiry of a token and returns its claims.
func (j *JWT) Validate(token string) (*JWTClaims, error) {
	signingInput, sig, ok := splitToken(token)
	if !ok {
		return nil, errMalformedToken
	}

	want := j.signature(signingInput)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return nil, errBadSignature
	}

	_, encodedClaims, _ := strings.Cut(signingInput, ".")
	payload, err := base64.RawURLEncoding.DecodeString(encodedClaims)
	if err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	var claims JWTClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if time.Now().Unix() > claims.Exp {
		return nil, errTokenExpired
	}
	return &claims, nil
}

// splitToken separates a compact token into its signing input
// (header.claims) and signature, rejecting anything that is not
// exactly three segments.
func splitToken(token string) (signingInput, sig string, ok bool) {
	i := strings.LastIndexByte(token, '.')
	if i <= 0 {
		return "", "", false
	}
	signingInput, sig = token[:i], token[i+1:]
	if strings.Count(signingInput, ".") != 1 {
		return "", "", false
	}
	return signingInput, sig, true
}

func (j *JWT) signature(signingInput string) string {
	mac := hmac.New(sha256.New, j.secret)
	mac.Write([]byte(signingInput))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
