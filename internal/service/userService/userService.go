package userService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/notifier"
	"github.com/stockerhq/stocker/internal/service"
	"github.com/stockerhq/stocker/utils"
)

type Repository interface {
	InsertUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

type Notifier interface {
	Publish(ctx context.Context, topic string, event notifier.Event) error
}

// UserService keeps the account registry. Credentials are opaque strings
// compared verbatim; the ledger core never sees them, it only receives
// authenticated user ids.
type UserService struct {
	repo     Repository
	notifier Notifier
}

func New(repo Repository, ntf Notifier) *UserService {
	return &UserService{repo: repo, notifier: ntf}
}

func (s *UserService) Register(ctx context.Context, username, email, password, role string) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "UserService.Register"

	slog.Debug("Register start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("Register finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	user := model.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: password,
		Role:     role,
		DtCreate: time.Now().UTC(),
	}

	err := s.repo.InsertUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.User{}, service.ErrEmailTaken
		}
		slog.Error("got error from repo.InsertUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	go s.notifyAccountEvent(context.WithoutCancel(ctx), notifier.EventAccountCreation, user)

	return user, nil
}

// Authenticate resolves the account by email and compares password and role
// verbatim. Any mismatch, including an unknown email, comes back as the
// same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password, role string) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "UserService.Authenticate"

	slog.Debug("Authenticate start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Authenticate finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrInvalidCredentials
		}
		slog.Error("got error from repo.GetUserByEmail", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	if user.Password != password || user.Role != role {
		return model.User{}, service.ErrInvalidCredentials
	}

	go s.notifyAccountEvent(context.WithoutCancel(ctx), notifier.EventLogin, user)

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "UserService.GetUser"

	slog.Debug("GetUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("GetUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	return user, nil
}

func (s *UserService) notifyAccountEvent(ctx context.Context, eventType string, user model.User) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "UserService.notifyAccountEvent"

	subject := "User Login"
	message := fmt.Sprintf("User logged in: %s (%s) as %s", user.Username, user.Email, user.Role)
	if eventType == notifier.EventAccountCreation {
		subject = "New User Registration"
		message = fmt.Sprintf("New user registered: %s (%s) as %s", user.Username, user.Email, user.Role)
	}

	event := notifier.Event{
		Subject: subject,
		Message: message,
		Attributes: map[string]string{
			"event_type": eventType,
			"user_role":  user.Role,
		},
	}

	if err := s.notifier.Publish(ctx, notifier.TopicUserAccounts, event); err != nil {
		slog.Error("got error from notifier.Publish", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
}
