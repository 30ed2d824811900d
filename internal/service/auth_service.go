package service

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/pkg/apierror"
)

const adminUserID = "admin"

// AuthService authenticates the single configured admin and issues access
// tokens for the admin API.
type AuthService struct {
	username     string
	passwordHash []byte
	jwtSecret    []byte
	accessTTL    time.Duration
}

func NewAuthService(username string, password string, jwtSecret string, accessTTL time.Duration) (*AuthService, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("admin username and password are required")
	}
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	return &AuthService{
		username:     username,
		passwordHash: hash,
		jwtSecret:    []byte(jwtSecret),
		accessTTL:    accessTTL,
	}, nil
}

func (s *AuthService) Login(req model.LoginRequest) (model.TokenPair, error) {
	if err := validateRequest(req); err != nil {
		return model.TokenPair{}, err
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(req.Username))), []byte(strings.ToLower(s.username))) == 1
	passwordErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password))
	if !usernameOK || passwordErr != nil {
		return model.TokenPair{}, apierror.Wrap(model.ErrInvalidCredentials, "UNAUTHORIZED", "invalid credentials", "", http.StatusUnauthorized)
	}

	return s.issueToken()
}

func (s *AuthService) ValidateToken(tokenString string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.New("UNAUTHORIZED", "invalid token signing method", "", http.StatusUnauthorized)
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.New("UNAUTHORIZED", "invalid token", "", http.StatusUnauthorized)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.New("UNAUTHORIZED", "invalid token claims", "", http.StatusUnauthorized)
	}

	typ, _ := claimsMap["typ"].(string)
	if typ != "access" {
		return nil, apierror.New("UNAUTHORIZED", "invalid token type", "", http.StatusUnauthorized)
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, apierror.New("UNAUTHORIZED", "invalid token subject", "", http.StatusUnauthorized)
	}

	return claims, nil
}

func (s *AuthService) issueToken() (model.TokenPair, error) {
	now := time.Now().UTC()
	user := model.AuthUser{ID: adminUserID, Username: s.username, Role: model.RoleAdmin}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"typ":      "access",
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User:        user,
	}, nil
}
