// middleware/jwt_middleware.go
package middleware

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// JwtCustomClaims for admin JWT tokens
type JwtCustomClaims struct {
	AdminID string `json:"adminId"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.StandardClaims
}

// Valid implements the Claims interface for Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}
	return nil
}

// GetJWTSecret returns the JWT secret from environment variables
func GetJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	return secret
}

// JWTMiddleware protects the admin API routes
func JWTMiddleware() echo.MiddlewareFunc {
	config := middleware.JWTConfig{
		Claims:     &JwtCustomClaims{},
		SigningKey: []byte(GetJWTSecret()),
		SuccessHandler: func(c echo.Context) {
			user := c.Get("user")
			if token, ok := user.(*jwt.Token); ok {
				if claims, ok := token.Claims.(*JwtCustomClaims); ok {
					c.Set("adminId", claims.AdminID)
					c.Set("email", claims.Email)
					c.Set("role", claims.Role)
				}
			}
		},
		ErrorHandler: func(err error) error {
			return echo.NewHTTPError(401, "invalid or missing token")
		},
	}
	return middleware.JWTWithConfig(config)
}

// GenerateJWT creates a signed token for an authenticated admin
func GenerateJWT(adminID, email, role string) (string, error) {
	claims := &JwtCustomClaims{
		AdminID: adminID,
		Email:   email,
		Role:    role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(12 * time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(GetJWTSecret()))
}

// GetUserFromToken extracts admin claims from the request token
func GetUserFromToken(c echo.Context) *JwtCustomClaims {
	user := c.Get("user")
	if user == nil {
		return nil
	}

	token, ok := user.(*jwt.Token)
	if !ok {
		return nil
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil
	}

	return claims
}
