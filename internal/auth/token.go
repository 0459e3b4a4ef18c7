package auth

import (
	"errors"
	"fmt"
	"time"

	"EventSeries/internal/model"

	"github.com/golang-jwt/jwt"
)

var (
	ErrMissingSecret = errors.New("auth secret is not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Identity 由外部认证方签发的身份信息
type Identity struct {
	UserID        uint64
	Role          model.Role
	InstitutionID *uint64
}

// Issuer HS256 令牌签发与校验
type Issuer struct {
	secret []byte
	issuer string
}

func NewIssuer(secret, issuer string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Issuer{secret: []byte(secret), issuer: issuer}, nil
}

// Issue 为身份签发令牌
func (i *Issuer) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     i.issuer,
		"user_id": id.UserID,
		"role":    string(id.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if id.InstitutionID != nil {
		claims["institution_id"] = *id.InstitutionID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse 校验签名与过期时间并取出身份
func (i *Issuer) Parse(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if i.issuer != "" && !claims.VerifyIssuer(i.issuer, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}

	uid, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	role, _ := claims["role"].(string)
	if !model.Role(role).Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role)
	}
	id := &Identity{UserID: uint64(uid), Role: model.Role(role)}
	if inst, ok := claims["institution_id"].(float64); ok {
		v := uint64(inst)
		id.InstitutionID = &v
	}
	return id, nil
}
