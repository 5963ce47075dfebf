package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-loader/internal/rbac"
)

type AuthService struct {
	hmac     []byte
	accounts map[string]Account
}

// Account is an operator who may log in. Hash is a bcrypt hash.
type Account struct {
	Hash string
	Role rbac.Role
}

func NewAuthService(secret string, accounts map[string]Account) *AuthService {
	if accounts == nil {
		accounts = map[string]Account{}
	}
	return &AuthService{hmac: []byte(secret), accounts: accounts}
}

type Claims struct {
	Sub  string    `json:"sub"`
	Role rbac.Role `json:"role"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub string, role rbac.Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mindengage-loader",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// Authenticate checks a username/password pair and returns the account role.
func (a *AuthService) Authenticate(username, password string) (rbac.Role, bool) {
	acct, ok := a.accounts[username]
	if !ok || acct.Hash == "" {
		return "", false
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.Hash), []byte(password)) != nil {
		return "", false
	}
	return acct.Role, true
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role, ok := a.Authenticate(req.Username, req.Password)
		if !ok {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(req.Username, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": string(role)})
	}
}

// JWTMiddleware rejects requests without a valid bearer token and puts the
// token's subject and role in the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := WithOperator(r.Context(), Operator{Subject: claims.Sub, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
