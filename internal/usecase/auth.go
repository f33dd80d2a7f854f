package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
)

type AuthAPI interface {
	Login(ctx context.Context, in customerapi.LoginInput) (*domain.Session, error)
	Register(ctx context.Context, in customerapi.RegisterInput) (*domain.Session, error)
	LoginWithOTP(ctx context.Context, in customerapi.OTPLoginInput) (*domain.Session, error)
	SendOTP(ctx context.Context, mobile string) error
}

// AuthUsecase exchanges credentials for a session. It never touches device
// storage; the caller hands the session to the navigation controller.
type AuthUsecase struct {
	api    AuthAPI
	logger *slog.Logger
}

func NewAuthUsecase(api AuthAPI, logger *slog.Logger) *AuthUsecase {
	return &AuthUsecase{api: api, logger: logger.With("component", "auth")}
}

func (u *AuthUsecase) Login(ctx context.Context, in customerapi.LoginInput) (*domain.Session, error) {
	if err := check(&in); err != nil {
		return nil, err
	}
	s, err := u.api.Login(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s, nil
}

func (u *AuthUsecase) Register(ctx context.Context, in customerapi.RegisterInput) (*domain.Session, error) {
	if err := check(&in); err != nil {
		return nil, err
	}
	s, err := u.api.Register(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	u.logger.InfoContext(ctx, "customer registered", "user_id", s.User.ID)
	return s, nil
}

type sendOTPInput struct {
	Mobile string `json:"mobile" validate:"required,min=10,max=15"`
}

func (u *AuthUsecase) SendOTP(ctx context.Context, mobile string) error {
	if err := check(&sendOTPInput{Mobile: mobile}); err != nil {
		return err
	}
	if err := u.api.SendOTP(ctx, mobile); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

func (u *AuthUsecase) LoginWithOTP(ctx context.Context, in customerapi.OTPLoginInput) (*domain.Session, error) {
	if err := check(&in); err != nil {
		return nil, err
	}
	s, err := u.api.LoginWithOTP(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("login with otp: %w", err)
	}
	return s, nil
}
