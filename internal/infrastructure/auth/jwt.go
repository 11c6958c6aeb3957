package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrRevokedToken     = errors.New("token has been revoked")
	ErrUnknownRole      = errors.New("token carries an unknown role")
)

// Claims are the custom JWT claims. Role is the resolved access role; session
// issuance itself lives with the identity provider, this service only
// validates tokens and extracts the identity.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTService validates bearer tokens and issues them for service accounts
// and tests.
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	parser     *jwt.Parser
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuedAt(),
		),
	}
}

// GenerateToken issues a signed token for an identity
func (s *JWTService) GenerateToken(identity shared.Identity) (string, error) {
	if !identity.Role.IsValid() {
		return "", ErrUnknownRole
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   identity.Subject,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: identity.Role.String(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken validates a token and returns the identity it carries
func (s *JWTService) ValidateToken(tokenString string) (shared.Identity, error) {
	identity, _, err := s.ValidateTokenWithClaims(tokenString)
	return identity, err
}

// ValidateTokenWithClaims validates a token and returns both the identity and
// the raw claims, so callers can check the token ID against a revocation list.
func (s *JWTService) ValidateTokenWithClaims(tokenString string) (shared.Identity, *Claims, error) {
	token, err := s.parser.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (interface{}, error) { return s.secret, nil })
	if err != nil {
		return shared.Identity{}, nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return shared.Identity{}, nil, ErrInvalidClaims
	}

	role := shared.Role(claims.Role)
	if !role.IsValid() {
		// Unknown roles degrade to read-only rather than being rejected, so a
		// newly added role in the identity provider cannot lock anyone out.
		role = shared.RoleOther
	}

	return shared.Identity{Subject: claims.Subject, Role: role}, claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotYetValid
	default:
		return ErrInvalidToken
	}
}

// Expiration returns the configured token lifetime
func (s *JWTService) Expiration() time.Duration {
	return s.expiration
}
