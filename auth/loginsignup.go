package auth

import (
	"context"
	"strings"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/globals"
	"hindustanbills/models"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	IssueToken(userID, role string) (string, error)
}

type Service struct {
	users  store.Users
	tokens TokenIssuer
}

func NewService(users store.Users, tokens TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=customer retailer"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name string `json:"name"`
	Role string `json:"role" validate:"omitempty,oneof=customer retailer"`
}

// Session is what every successful sign-in returns.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.tokens.IssueToken(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to generate token")
	}
	return &Session{Token: token, User: u}, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("User already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal(err, "Database error")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err, "Could not process password")
	}

	role := in.Role
	if role == "" {
		role = globals.RoleCustomer
	}
	now := time.Now()
	user := &models.User{
		ID:        utils.GetUUID(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Password:  string(hashed),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal(err, "Failed to register user")
	}
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.users.UserByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, apperr.Internal(err, "Database error")
	}
	if user.Password == "" {
		return nil, apperr.Unauthorized("This account uses Google sign-in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	return s.session(user)
}

// UpdateProfile renames the user and allows one role switch between
// customer and retailer.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*Session, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal(err, "Database error")
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if in.Role != "" && in.Role != user.Role {
		if user.Role == globals.RoleAdmin {
			return nil, apperr.Forbidden("Admin role cannot be changed")
		}
		if user.RoleChanged {
			return nil, apperr.Conflict("Role can only be changed once")
		}
		user.Role = in.Role
		user.RoleChanged = true
	}
	user.UpdatedAt = time.Now()

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, apperr.Internal(err, "Failed to update profile")
	}
	return s.session(user)
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal(err, "Database error")
	}
	return user, nil
}

// GoogleSignIn finds the user for a Google profile, linking by email, or
// creates a customer account on first login.
func (s *Service) GoogleSignIn(ctx context.Context, p *GoogleProfile) (*Session, error) {
	user, err := s.users.UserByGoogleID(ctx, p.ID)
	if err == nil {
		return s.session(user)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal(err, "Database error")
	}
	// linking or creating by email needs Google to vouch for it
	if !p.VerifiedEmail {
		return nil, apperr.Forbidden("Google account email is not verified")
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	user, err = s.users.UserByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleID = p.ID
		user.UpdatedAt = time.Now()
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, apperr.Internal(err, "Failed to link Google account")
		}
		return s.session(user)
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Internal(err, "Database error")
	}

	now := time.Now()
	user = &models.User{
		ID:        utils.GetUUID(),
		Name:      p.Name,
		Email:     email,
		Role:      globals.RoleCustomer,
		GoogleID:  p.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, apperr.Internal(err, "Failed to create user")
	}
	return s.session(user)
}
