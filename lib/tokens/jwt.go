package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const paymentPurpose = "booking_payment"

var ErrInvalidPaymentToken = errors.New("invalid or expired payment authorization token")

type jwtCustomClaims struct {
	ID int64 `json:"id"`

	jwt.StandardClaims
}

type paymentClaims struct {
	UserID    int64  `json:"uid"`
	BookingID int64  `json:"bid"`
	Purpose   string `json:"pur"`

	jwt.StandardClaims
}

// Middleware validates the portal JWT and stores the user id as "UserID".
func Middleware(secret []byte) echo.MiddlewareFunc {
	config := middleware.DefaultJWTConfig

	config.ContextKey = "UserJwt"
	config.SigningKey = secret
	config.ErrorHandlerWithContext = func(err error, c echo.Context) error {
		c.Logger().Error(err)
		return echo.NewHTTPError(401, echo.Map{
			"error":   true,
			"code":    1,
			"message": "bad auth",
		})
	}
	config.SuccessHandler = func(c echo.Context) {
		token := c.Get("UserJwt").(*jwt.Token)
		claims := token.Claims.(jwt.MapClaims)
		if id, ok := claims["id"].(float64); ok {
			c.Set("UserID", int64(id))
		}
	}
	return middleware.JWTWithConfig(config)
}

// GenerateAccessToken : Generate Access Token
func GenerateAccessToken(secret []byte, expiryInSeconds int, userID int64) (string, error) {
	claims := &jwtCustomClaims{
		userID,
		jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Second * time.Duration(expiryInSeconds)).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return t, nil
}

// GeneratePaymentToken issues the short lived token that authorizes a
// user to start a payment on one booking.
func GeneratePaymentToken(secret []byte, expiryInSeconds int, userID, bookingID int64, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(time.Second * time.Duration(expiryInSeconds))
	claims := &paymentClaims{
		UserID:    userID,
		BookingID: bookingID,
		Purpose:   paymentPurpose,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return t, expiresAt, nil
}

func VerifyPaymentToken(secret []byte, tokenString string, userID, bookingID int64) error {
	if tokenString == "" {
		return ErrInvalidPaymentToken
	}
	claims := &paymentClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidPaymentToken
	}
	if claims.Purpose != paymentPurpose || claims.UserID != userID || claims.BookingID != bookingID {
		return ErrInvalidPaymentToken
	}
	return nil
}
