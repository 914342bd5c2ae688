package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "compass-api"

	// KindAccess marks the long-lived, deliberately reusable magic-link
	// credential embedded in the invitation URL.
	KindAccess = "invitation_access"
	// KindSession marks the short-lived credential minted after a
	// successful access-token validation.
	KindSession = "session"

	// Access tokens never outlive seven days, whatever the caller asks for.
	maxAccessValidity = 7 * 24 * time.Hour
	sessionValidity   = 24 * time.Hour
)

var (
	// ErrMissingSecret indicates the signing secret is not configured.
	// This is fatal for the whole delegation subsystem.
	ErrMissingSecret = errors.New("token signing secret is not configured")
	// ErrInvalidToken indicates a bad signature or malformed payload.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired indicates the token is past its self-contained expiry.
	ErrExpired = errors.New("token expired")
)

// Claims is the signed payload shared by both token kinds. Kind
// discriminates access tokens from session tokens explicitly, so validation
// never has to infer the purpose from which fields happen to be present.
type Claims struct {
	Kind               string `json:"kind"`
	InvitationID       string `json:"invitation_id"`
	AssessmentID       string `json:"assessment_id,omitempty"`
	SourceAssessmentID string `json:"source_assessment_id,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256-signed capability tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner builds a Signer from the server-held secret.
func NewSigner(secret string, opts ...Option) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	s := &Signer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccess signs the reusable invitation link token. The requested
// validity is expressed in days and hard-capped at seven; zero or negative
// requests get the cap.
func (s *Signer) IssueAccess(invitationID, assessmentID, sourceAssessmentID string, expiresInDays int) (string, time.Time, error) {
	validity := time.Duration(expiresInDays) * 24 * time.Hour
	if validity <= 0 || validity > maxAccessValidity {
		validity = maxAccessValidity
	}
	now := s.now().UTC()
	expiresAt := now.Add(validity)

	claims := Claims{
		Kind:               KindAccess,
		InvitationID:       invitationID,
		AssessmentID:       assessmentID,
		SourceAssessmentID: sourceAssessmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   invitationID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueSession signs a 24-hour session token bound to the invitation.
func (s *Signer) IssueSession(invitationID string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		Kind:         KindSession,
		InvitationID: invitationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   invitationID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionValidity)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and the self-contained expiry. It never
// consults storage: revocation is a stateful check the caller must perform
// against the invitation record. On ErrExpired the claims are still
// returned when the signature verified, so callers can audit which
// invitation the stale token belonged to.
func (s *Signer) Validate(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			if parsed != nil {
				if claims, ok := parsed.Claims.(*Claims); ok {
					return claims, ErrExpired
				}
			}
			return nil, ErrExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != KindAccess && claims.Kind != KindSession {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.InvitationID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
