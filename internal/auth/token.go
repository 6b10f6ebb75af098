package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "clinic_booking"

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenIssuer выпускает и проверяет HS256 токены доступа
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue возвращает подписанный токен и время его истечения
func (t *TokenIssuer) Issue(p model.Principal) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(p.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse проверяет подпись и срок токена и восстанавливает участника
func (t *TokenIssuer) Parse(raw string) (model.Principal, error) {
	tok, err := jwt.ParseWithClaims(raw, &claims{}, func(tok *jwt.Token) (any, error) {
		// только HMAC, иначе возможна подмена алгоритма
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Principal{}, ErrTokenExpired
		}
		return model.Principal{}, ErrTokenInvalid
	}

	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return model.Principal{}, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.Principal{}, ErrTokenInvalid
	}

	role := model.Role(c.Role)
	if role != model.RolePatient && role != model.RoleStaff {
		return model.Principal{}, ErrTokenInvalid
	}

	return model.Principal{UserID: userID, Role: role}, nil
}
