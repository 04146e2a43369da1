package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"ragchat-api/internal/model"
	"ragchat-api/internal/pkg/password"
	"ragchat-api/internal/repository"
)

// AdminService backs the privileged user-management routes and the
// createsuperuser command.
type AdminService struct {
	users    UserStore
	hasher   password.Hasher
	logger   *slog.Logger
	validate *validator.Validate
}

type SuperuserInput struct {
	Email    string
	Password string
	FullName string
}

func NewAdminService(users UserStore, hasher password.Hasher, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		users:    users,
		hasher:   hasher,
		logger:   logger.With(slog.String("component", "admin")),
		validate: validator.New(),
	}
}

func (s *AdminService) ListUsers(ctx context.Context, offset, limit int) ([]model.User, error) {
	if offset < 0 || limit < 0 {
		return nil, ErrInvalidInput
	}
	return s.users.List(ctx, offset, limit)
}

func (s *AdminService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// SetUserStatus toggles is_active. Deactivating a user is the soft delete;
// their outstanding tokens stop passing the gate on the next request.
func (s *AdminService) SetUserStatus(ctx context.Context, actor *model.User, id uint, isActive bool) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.ID == user.ID && !isActive {
		return nil, ErrInvalidInput
	}
	if user.IsActive == isActive {
		return user, nil
	}
	if err := s.users.UpdateStatus(ctx, id, isActive); err != nil {
		return nil, err
	}
	user.IsActive = isActive

	actorID := uint64(0)
	if actor != nil {
		actorID = uint64(actor.ID)
	}
	s.logger.InfoContext(ctx, "user status changed",
		slog.Uint64("user_id", uint64(id)),
		slog.Bool("is_active", isActive),
		slog.Uint64("actor_id", actorID),
	)
	return user, nil
}

// EnsureSuperuser creates an active privileged user, or promotes and
// reactivates an existing one. The password is only used on creation.
func (s *AdminService) EnsureSuperuser(ctx context.Context, input SuperuserInput) (*model.User, bool, error) {
	email := strings.TrimSpace(input.Email)
	if err := s.validate.Var(email, "required,email,max=255"); err != nil {
		return nil, false, ErrInvalidInput
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if !existing.IsSuperuser {
			if err := s.users.UpdateSuperuser(ctx, existing.ID, true); err != nil {
				return nil, false, err
			}
			existing.IsSuperuser = true
		}
		if !existing.IsActive {
			if err := s.users.UpdateStatus(ctx, existing.ID, true); err != nil {
				return nil, false, err
			}
			existing.IsActive = true
		}
		s.logger.InfoContext(ctx, "user promoted to superuser", slog.Uint64("user_id", uint64(existing.ID)))
		return existing, false, nil
	}

	if utf8.RuneCountInString(input.Password) < MinPasswordLength || len(input.Password) > password.MaxLength {
		return nil, false, ErrInvalidInput
	}
	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, false, err
	}
	user := &model.User{
		Email:        email,
		PasswordHash: digest,
		FullName:     optionalString(input.FullName),
		IsActive:     true,
		IsSuperuser:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, false, ErrEmailExists
		}
		return nil, false, err
	}
	s.logger.InfoContext(ctx, "superuser created", slog.Uint64("user_id", uint64(user.ID)))
	return user, true, nil
}
