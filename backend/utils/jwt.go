package utils

import (
	"strings"
	"time"

	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/oops"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	ResetTokenTTL = 15 * time.Minute
	purposeReset  = "reset"
)

type Claims struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWTToken signs a login token. Login tokens carry no expiry;
// revocation happens through the role re-fetch in the auth middleware.
func GenerateJWTToken(user *models.User, cfg *config.Config) (string, error) {
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// GenerateResetToken signs a short-lived password reset token. The key mixes
// in the current password hash so a token dies once the password changes.
func GenerateResetToken(user *models.User, cfg *config.Config) (string, error) {
	claims := Claims{
		UserID:  user.ID,
		Email:   user.Email,
		Purpose: purposeReset,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ResetTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(resetKey(user, cfg))
}

// ParseToken verifies a login token's signature and returns its claims.
func ParseToken(tokenString string, cfg *config.Config) (*Claims, error) {
	claims, err := parse(tokenString, []byte(cfg.JWTSecret))
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" || claims.UserID == "" {
		return nil, oops.Unauthorized("Invalid token claims")
	}
	return claims, nil
}

// ResetTokenSubject reads the user id out of a reset token without verifying
// it, so the caller can load the user whose hash is part of the key.
func ResetTokenSubject(tokenString string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", oops.Unauthorized("Invalid or expired reset token")
	}
	if claims.Purpose != purposeReset || claims.UserID == "" {
		return "", oops.Unauthorized("Invalid or expired reset token")
	}
	return claims.UserID, nil
}

// VerifyResetToken checks a reset token against the user it names.
func VerifyResetToken(tokenString string, user *models.User, cfg *config.Config) error {
	claims, err := parse(tokenString, resetKey(user, cfg))
	if err != nil || claims.Purpose != purposeReset || claims.UserID != user.ID {
		return oops.Unauthorized("Invalid or expired reset token")
	}
	return nil
}

// ExtractToken pulls the token out of the Authorization header. The Bearer
// prefix is optional.
func ExtractToken(c *fiber.Ctx) (string, error) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", oops.Unauthorized("Missing authorization token")
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	return header, nil
}

func parse(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, oops.Unauthorized("Invalid signing method")
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return nil, oops.Unauthorized("Invalid token")
	}
	return claims, nil
}

func resetKey(user *models.User, cfg *config.Config) []byte {
	return []byte(cfg.JWTSecret + user.Password)
}
