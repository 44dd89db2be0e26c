package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type apiClaims struct {
	Subject string `json:"sub_name"`
	jwt.RegisteredClaims
}

// CreateAPIToken mints a short-lived bearer token for the ops API.
func CreateAPIToken(subject string) (string, error) {
	claims := apiClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "echonet",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tks, err := token.SignedString([]byte(viper.GetString("security.api_token_secret")))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return tks, nil
}

func parseAPIToken(tk string) (apiClaims, error) {
	var claims apiClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return []byte(viper.GetString("security.api_token_secret")), nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return claims, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func authMiddleware(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}

	claims, err := parseAPIToken(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}

	c.Locals("operator", claims.Subject)

	return c.Next()
}
