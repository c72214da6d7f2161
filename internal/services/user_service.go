package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/docharbor/docharbor/internal/core"
	"github.com/docharbor/docharbor/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// ErrUserNotFound maps to 404 in the API layer.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken maps to 409 in the API layer.
var ErrEmailTaken = errors.New("email already in use")

// UserService manages the operator accounts behind the admin endpoints.
// Accounts are never hard-deleted: deactivation flips Active off, which both
// login and the auth middleware refuse.
type UserService struct {
	db core.DbClient
}

func NewUserService(db core.DbClient) *UserService {
	return &UserService{db: db}
}

// SaveUserInput carries user fields for create and update. On update, empty
// strings leave the current value untouched.
type SaveUserInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
	UserType             string
}

func (s *UserService) Create(ctx context.Context, in SaveUserInput) (*models.User, error) {
	if msg := validateSaveUser(in, true); msg != "" {
		return nil, &ValidationError{Msg: msg}
	}
	existing, err := s.db.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, in.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		UserType:     in.UserType,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if user.UserType == "" {
		user.UserType = "member"
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in SaveUserInput) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if msg := validateSaveUser(in, false); msg != "" {
		return nil, &ValidationError{Msg: msg}
	}

	if in.Email != "" && in.Email != user.Email {
		existing, err := s.db.GetUserByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, in.Email)
		}
		user.Email = in.Email
	}
	if in.UserType != "" {
		user.UserType = in.UserType
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, filter core.UserFilter) ([]models.User, int, error) {
	return s.db.ListUsers(ctx, filter)
}

// Deactivate is the delete operation: the account stays for audit but can no
// longer authenticate.
func (s *UserService) Deactivate(ctx context.Context, id string) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	user.Active = false
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// validateSaveUser collects field problems into one message. creating demands
// the full credential set; updates validate only what changes.
func validateSaveUser(in SaveUserInput, creating bool) string {
	var problems []string
	if creating {
		if in.Email == "" {
			problems = append(problems, "email is required")
		}
		if in.Password == "" {
			problems = append(problems, "password is required")
		}
		if in.PasswordConfirmation == "" {
			problems = append(problems, "password confirmation is required")
		}
	}
	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		problems = append(problems, "email has an invalid format")
	}
	if in.Password != "" {
		if len(in.Password) < 8 {
			problems = append(problems, "password must be at least 8 characters")
		}
		if in.PasswordConfirmation != "" && in.Password != in.PasswordConfirmation {
			problems = append(problems, "password confirmation does not match")
		}
	}
	if in.UserType != "" && in.UserType != "member" && in.UserType != "admin" {
		problems = append(problems, fmt.Sprintf("user type %q is invalid", in.UserType))
	}
	return strings.Join(problems, "; ")
}
