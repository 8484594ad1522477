package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

var ErrTokenInvalid = errors.New("token is invalid")

// MakeAuthToken issues a signed session token bound to the given user.
// Expiry comes from jwt.expiry_days (7 days by default).
func MakeAuthToken(userID uint, email string) (string, error) {
	days := viper.GetInt("jwt.expiry_days")

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour * 24 * time.Duration(days)).Unix(),
	})

	return t.SignedString([]byte(viper.GetString("jwt.secret")))
}

// ParseAuthToken validates a session token and returns the user ID and
// email it was bound to
func ParseAuthToken(tokenStr string) (uint, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return []byte(viper.GetString("jwt.secret")), nil
	})
	if err != nil {
		return 0, "", err
	}

	if !token.Valid {
		return 0, "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", ErrTokenInvalid
	}

	idRaw, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", ErrTokenInvalid
	}

	email, _ := claims["email"].(string)

	return uint(idRaw), email, nil
}
