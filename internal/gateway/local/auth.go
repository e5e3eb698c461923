package local

import (
	"context"
	"errors"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SignUp registers a new identity with password credentials.
func (g *Gateway) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing User
	err := g.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, models.NewValidationError("User already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewGatewayError("sign up", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hashed),
	}
	if err := g.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, models.NewGatewayError("sign up", err)
	}

	return g.startSession(&user)
}

// SignIn authenticates with password credentials.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user User
	if err := g.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Invalid email or password")
		}
		return nil, models.NewGatewayError("sign in", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}

	return g.startSession(&user)
}

// SignOut clears the stored session.
func (g *Gateway) SignOut(ctx context.Context) error {
	g.setSession(nil)
	return nil
}

// CurrentSession returns the stored session if its token is still valid.
func (g *Gateway) CurrentSession(ctx context.Context) (*models.Session, error) {
	g.mu.Lock()
	session := g.session
	g.mu.Unlock()
	if session == nil || session.Expired() {
		return nil, nil
	}
	return session, nil
}

// ParseToken validates a bearer token minted by this gateway and returns the
// identity it names.
func (g *Gateway) ParseToken(tokenString string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return g.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, models.NewUnauthorizedError("Invalid token subject")
	}
	email, _ := claims["email"].(string)
	return &models.Identity{ID: sub, Email: email}, nil
}

func (g *Gateway) startSession(user *User) (*models.Session, error) {
	expiresAt := time.Now().Add(g.tokenTTL)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.jwtSecret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	session := &models.Session{
		Identity:     &models.Identity{ID: user.ID, Email: user.Email},
		AccessToken:  signed,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expiresAt,
	}
	g.setSession(session)
	return session, nil
}
