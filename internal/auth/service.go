package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/studyhall/studyhall-lms/internal/lms"
)

type AuthService struct {
	hmac  []byte
	store lms.Store
	ttl   time.Duration
}

func NewAuthService(secret string, store lms.Store) *AuthService {
	return &AuthService{hmac: []byte(secret), store: store, ttl: 8 * time.Hour}
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"` // "student" | "instructor" | "admin"
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "studyhall",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return c, nil
}

// Register creates a user with a bcrypt-hashed password. Duplicate usernames
// or emails surface as lms.ErrConflict from the store's unique constraints.
func (a *AuthService) Register(ctx context.Context, username, email, password, role, firstName, lastName string) (lms.User, error) {
	if role == "" {
		role = lms.RoleStudent
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return lms.User{}, err
	}
	u := lms.User{
		ID:           lms.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    firstName,
		LastName:     lastName,
	}
	if err := a.store.CreateUser(ctx, &u); err != nil {
		return lms.User{}, err
	}
	return u, nil
}

var ErrBadCredentials = errors.New("invalid credentials")

// Login checks the password against the stored bcrypt hash and returns a
// signed token plus the user record.
func (a *AuthService) Login(ctx context.Context, username, password string) (string, lms.User, error) {
	u, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		// Same failure as a bad password so usernames cannot be probed.
		return "", lms.User{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", lms.User{}, ErrBadCredentials
	}
	_ = a.store.TouchLastLogin(ctx, u.ID, time.Now().Unix())
	tok, err := a.IssueJWT(u.ID, u.Role)
	if err != nil {
		return "", lms.User{}, err
	}
	return tok, u, nil
}
