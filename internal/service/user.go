package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/messaging-platform/internal/auth"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
	"github.com/capitalize-ai/messaging-platform/pkg/metrics"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 32
)

// UserService handles login, registration and user listings.
type UserService struct {
	users      store.UserStore
	tokens     *auth.TokenIssuer
	online     OnlineLister
	bcryptCost int
	logger     *logger.Logger
}

// NewUserService creates a new user service.
func NewUserService(users store.UserStore, tokens *auth.TokenIssuer, online OnlineLister, bcryptCost int, log *logger.Logger) *UserService {
	return &UserService{
		users:      users,
		tokens:     tokens,
		online:     online,
		bcryptCost: bcryptCost,
		logger:     log,
	}
}

// Login verifies the credentials of an existing user, or registers a new
// user when the username is unknown.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (resp *model.LoginResponse, err error) {
	ctx, span := startSpan(ctx, "UserService.Login")
	defer func() { endSpan(span, err) }()

	username := strings.TrimSpace(req.Username)
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return nil, apperror.Validation("username must be between 3 and 32 characters")
	}
	if req.Password == "" {
		return nil, apperror.Validation("password is required")
	}

	user, err := s.users.GetUserByName(ctx, username)
	switch {
	case err == nil:
		return s.verify(user, req.Password)
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperror.Internal("failed to look up user", err)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	user = &model.User{
		ID:           store.NewID(),
		Username:     username,
		PasswordHash: hash,
		ProfilePicID: auth.RandomProfilePicture(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, apperror.Internal("failed to create user", err)
		}
		// Lost a registration race; the winner's credentials decide.
		existing, err := s.users.GetUserByName(ctx, username)
		if err != nil {
			return nil, apperror.Internal("failed to look up user", err)
		}
		return s.verify(existing, req.Password)
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, apperror.Internal("failed to sign token", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	metrics.LoginsTotal.WithLabelValues("registered").Inc()
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))

	return &model.LoginResponse{User: user.Summary(), Token: token, IsNewUser: true}, nil
}

func (s *UserService) verify(user *model.User, password string) (*model.LoginResponse, error) {
	if !auth.CheckPassword(user.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return nil, apperror.Unauthorized("wrong password")
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, apperror.Internal("failed to sign token", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return &model.LoginResponse{User: user.Summary(), Token: token, IsNewUser: false}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.Unauthorized("you need a token")
	}

	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperror.Unauthorized("the token is invalid")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, apperror.Unauthorized("the token contains an invalid user id"), "failed to look up user")
	}
	return user, nil
}

// OnlineUsers returns the users that currently hold a live connection.
func (s *UserService) OnlineUsers(ctx context.Context) (users []model.UserSummary, err error) {
	ctx, span := startSpan(ctx, "UserService.OnlineUsers")
	defer func() { endSpan(span, err) }()

	if s.online == nil {
		return []model.UserSummary{}, nil
	}

	ids, err := s.online.OnlineUserIDs(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list online users", err)
	}

	found, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal("failed to resolve online users", err)
	}
	return summaries(found), nil
}

// AllUsers returns every registered user.
func (s *UserService) AllUsers(ctx context.Context) (users []model.UserSummary, err error) {
	ctx, span := startSpan(ctx, "UserService.AllUsers")
	defer func() { endSpan(span, err) }()

	found, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list users", err)
	}
	return summaries(found), nil
}

func summaries(users []model.User) []model.UserSummary {
	out := make([]model.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out
}
