// Package grant mints and validates the ed25519 join grants that admit a
// user into a session. The campaign platform normally mints grants and the
// hub only verifies them; the signer half exists for ops tooling and tests.
package grant

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/id"
	apperrors "github.com/louisbranch/gathering.place/internal/platform/errors"
)

// Environment variable names for grant configuration.
const (
	EnvGrantIssuer     = "GATHERING_PLACE_GRANT_ISSUER"
	EnvGrantAudience   = "GATHERING_PLACE_GRANT_AUDIENCE"
	EnvGrantPublicKey  = "GATHERING_PLACE_GRANT_PUBLIC_KEY"
	EnvGrantPrivateKey = "GATHERING_PLACE_GRANT_PRIVATE_KEY"
	EnvGrantTTL        = "GATHERING_PLACE_GRANT_TTL"
)

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	Issuer    string `env:"GATHERING_PLACE_GRANT_ISSUER"`
	Audience  string `env:"GATHERING_PLACE_GRANT_AUDIENCE"`
	PublicKey string `env:"GATHERING_PLACE_GRANT_PUBLIC_KEY"`
}

// signerEnv holds raw env values before post-parse validation.
type signerEnv struct {
	Issuer     string        `env:"GATHERING_PLACE_GRANT_ISSUER"`
	Audience   string        `env:"GATHERING_PLACE_GRANT_AUDIENCE"`
	PrivateKey string        `env:"GATHERING_PLACE_GRANT_PRIVATE_KEY"`
	TTL        time.Duration `env:"GATHERING_PLACE_GRANT_TTL"         envDefault:"5m"`
}

// Config defines how join grants are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Enforced reports whether a verification key is configured. An unenforced
// hub admits joins without a grant (development mode).
func (c Config) Enforced() bool {
	return len(c.Key) == ed25519.PublicKeySize
}

// Claims captures the validated identity carried by a join grant.
type Claims struct {
	Issuer      string
	Audience    []string
	ExpiresAt   time.Time
	NotBefore   time.Time
	IssuedAt    time.Time
	JWTID       string
	SessionID   string
	UserID      string
	CharacterID string
	Role        participant.Role
}

// grantClaims is the internal claims type used for JWT signing and parsing.
type grantClaims struct {
	jwt.RegisteredClaims
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	CharacterID string `json:"character_id,omitempty"`
	Role        string `json:"role"`
}

// LoadConfigFromEnv reads join grant verification configuration. A missing
// public key leaves the config unenforced; when a key is present the issuer
// and audience become required.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw verifierEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse grant env: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if publicKey == "" {
		return Config{Issuer: issuer, Audience: audience, Now: now}, nil
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if issuer == "" {
		return Config{}, fmt.Errorf("GATHERING_PLACE_GRANT_ISSUER is required when a key is set")
	}
	if audience == "" {
		return Config{}, fmt.Errorf("GATHERING_PLACE_GRANT_AUDIENCE is required when a key is set")
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Validate verifies a join grant token and checks it admits the caller into
// the given session. The asserted user, character and role are taken from
// the grant itself.
func Validate(token, sessionID string, cfg Config) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "join grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || !cfg.Enforced() {
		return Claims{}, errors.New("join grant verifier is not configured")
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeGrantMismatch,
			"join grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeGrantMismatch,
			"join grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if parsed.ID == "" {
		return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "join grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "join grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeGrantExpired, "join grant is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "join grant not active yet")
	}

	if strings.TrimSpace(parsed.SessionID) == "" || parsed.SessionID != sessionID {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeGrantMismatch,
			"join grant session mismatch",
			map[string]string{"Field": "session_id"},
		)
	}
	if strings.TrimSpace(parsed.UserID) == "" {
		return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "join grant user is required")
	}
	role, ok := participant.NormalizeRole(parsed.Role)
	if !ok {
		return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "join grant role is invalid")
	}

	claims := Claims{
		Issuer:      parsed.Issuer,
		Audience:    []string(parsed.Audience),
		ExpiresAt:   exp,
		JWTID:       parsed.ID,
		SessionID:   parsed.SessionID,
		UserID:      parsed.UserID,
		CharacterID: strings.TrimSpace(parsed.CharacterID),
		Role:        role,
	}
	if parsed.NotBefore != nil {
		claims.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// Signer defines how join grants are minted.
type Signer struct {
	Issuer   string
	Audience string
	Key      ed25519.PrivateKey
	TTL      time.Duration
	Now      func() time.Time
}

// LoadSignerFromEnv reads join grant signing configuration. Every field is
// required: minting without a key has no development fallback.
func LoadSignerFromEnv(now func() time.Time) (Signer, error) {
	var raw signerEnv
	if err := env.Parse(&raw); err != nil {
		return Signer{}, fmt.Errorf("parse grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	privateKey := strings.TrimSpace(raw.PrivateKey)
	if issuer == "" {
		return Signer{}, fmt.Errorf("GATHERING_PLACE_GRANT_ISSUER is required")
	}
	if audience == "" {
		return Signer{}, fmt.Errorf("GATHERING_PLACE_GRANT_AUDIENCE is required")
	}
	if privateKey == "" {
		return Signer{}, fmt.Errorf("GATHERING_PLACE_GRANT_PRIVATE_KEY is required")
	}
	keyBytes, err := decodeBase64(privateKey)
	if err != nil {
		return Signer{}, fmt.Errorf("decode grant private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return Signer{}, fmt.Errorf("grant private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if raw.TTL <= 0 {
		return Signer{}, fmt.Errorf("grant ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return Signer{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PrivateKey(keyBytes),
		TTL:      raw.TTL,
		Now:      now,
	}, nil
}

// Identity is whom a minted grant admits, and as what.
type Identity struct {
	SessionID   string
	UserID      string
	CharacterID string
	Role        participant.Role
}

// Mint signs a join grant for the identity.
func Mint(signer Signer, identity Identity) (string, error) {
	if signer.Issuer == "" || signer.Audience == "" || len(signer.Key) != ed25519.PrivateKeySize {
		return "", errors.New("join grant signer is not configured")
	}
	if signer.TTL <= 0 {
		return "", errors.New("join grant ttl must be positive")
	}
	if signer.Now == nil {
		signer.Now = time.Now
	}
	sessionID := strings.TrimSpace(identity.SessionID)
	if sessionID == "" {
		return "", errors.New("join grant session id is required")
	}
	userID := strings.TrimSpace(identity.UserID)
	if userID == "" {
		return "", errors.New("join grant user id is required")
	}
	role, ok := participant.NormalizeRole(string(identity.Role))
	if !ok {
		return "", errors.New("join grant role is invalid")
	}

	jti, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate grant id: %w", err)
	}
	now := signer.Now().UTC()
	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signer.Issuer,
			Audience:  jwt.ClaimStrings{signer.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(signer.TTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		SessionID:   sessionID,
		UserID:      userID,
		CharacterID: strings.TrimSpace(identity.CharacterID),
		Role:        string(role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(signer.Key)
	if err != nil {
		return "", fmt.Errorf("sign join grant: %w", err)
	}
	return signed, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeGrantInvalid, "join grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeGrantInvalid, "join grant alg is invalid")
	}
	return apperrors.Wrap(apperrors.CodeGrantInvalid, "join grant is invalid", err)
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
