package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret string
	issuer string
}

func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "rosterd"
	}
	return &TokenManager{secret: secret, issuer: issuer}
}

func (tm *TokenManager) GenerateToken(tenantID, userID, email, role string, expiresIn time.Duration) (string, error) {
	if userID == "" || role == "" {
		return "", fmt.Errorf("user_id and role required")
	}
	now := time.Now()
	claims := Claims{
		TenantID: tenantID,
		UserID:   userID,
		Email:    email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tm.secret))
}

func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}

const legacyTokenMaxAge = 24 * time.Hour

// ParseLegacyToken accepts the pipe-delimited token the first-generation web
// clients still send: id|email|role|academyId|millis (the academyId segment
// is missing in the oldest variant).
func ParseLegacyToken(token string) (*Claims, error) {
	parts := strings.Split(token, "|")

	var issued string
	claims := &Claims{}
	switch len(parts) {
	case 5:
		claims.UserID, claims.Email, claims.Role, claims.TenantID, issued = parts[0], parts[1], parts[2], parts[3], parts[4]
	case 4:
		claims.UserID, claims.Email, claims.Role, issued = parts[0], parts[1], parts[2], parts[3]
	default:
		return nil, fmt.Errorf("invalid legacy token format")
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, fmt.Errorf("invalid legacy token format")
	}

	millis, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid legacy token timestamp")
	}
	if time.Since(time.UnixMilli(millis)) > legacyTokenMaxAge {
		return nil, fmt.Errorf("legacy token expired")
	}
	return claims, nil
}

// ParseAnyToken validates a JWT, falling back to the legacy format
func (tm *TokenManager) ParseAnyToken(token string) (*Claims, error) {
	if claims, err := tm.ValidateToken(token); err == nil {
		return claims, nil
	}
	return ParseLegacyToken(token)
}
