package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/ids"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/security"
)

var errInvalidRole = apperr.Validation("Role must be one of: CUSTOMER, ADMIN")

type UserService struct {
	users  UserStore
	hasher *security.PasswordHasher
	log    zerolog.Logger
}

func NewUserService(users UserStore, hasher *security.PasswordHasher, log zerolog.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, log: log}
}

type CreateUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber *string
	Role        models.UserRole
}

// UpdateUserInput carries a partial update. Nil fields are left unchanged.
type UpdateUserInput struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
	Role        *models.UserRole
}

func (s *UserService) List(ctx context.Context, actor Actor, page Page) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	limit, offset := page.Bounds()
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, actor Actor, id string) (models.User, error) {
	if !actor.Owns(id) {
		return models.User{}, ErrForbidden
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, notFound(err, repository.ErrUserNotFound, ErrUserNotFound, "get user")
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, actor Actor, input CreateUserInput) (models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return models.User{}, err
	}
	input.Email = normalizeEmail(input.Email)
	if err := validateProfile(input.FirstName, input.LastName, input.Email, input.PhoneNumber); err != nil {
		return models.User{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return models.User{}, err
	}
	if input.Role == "" {
		input.Role = models.UserRoleCustomer
	}
	if !input.Role.Valid() {
		return models.User{}, errInvalidRole
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Create(ctx, models.User{
		ID:           ids.New(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         input.Role,
		PhoneNumber:  input.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor Actor, id string, input UpdateUserInput) (models.User, error) {
	if !actor.Owns(id) {
		return models.User{}, ErrForbidden
	}
	if input.Role != nil && !actor.IsAdmin() {
		return models.User{}, ErrAdminOnly
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, notFound(err, repository.ErrUserNotFound, ErrUserNotFound, "get user")
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		user.Email = normalizeEmail(*input.Email)
	}
	if input.PhoneNumber != nil {
		if *input.PhoneNumber == "" {
			user.PhoneNumber = nil
		} else {
			user.PhoneNumber = input.PhoneNumber
		}
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return models.User{}, errInvalidRole
		}
		user.Role = *input.Role
	}
	if err := validateProfile(user.FirstName, user.LastName, user.Email, user.PhoneNumber); err != nil {
		return models.User{}, err
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, notFound(err, repository.ErrUserNotFound, ErrUserNotFound, "update user")
	}
	return updated, nil
}

// Delete removes the user. Sessions, carts, orders and reviews go with it.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Owns(id) {
		return ErrForbidden
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, repository.ErrUserNotFound, ErrUserNotFound, "delete user")
	}
	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Msg("user deleted")
	return nil
}
