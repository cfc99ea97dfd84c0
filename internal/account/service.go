package account

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
)

// Mailer delivers plain-text messages.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type RegisterInput struct {
	FirstName   string
	LastName    string
	Gender      string
	Email       string
	PhoneNumber string
	Username    string
	Password    string
}

type ProfileInput struct {
	FirstName       string
	LastName        string
	Gender          string
	Email           string
	PhoneNumber     string
	Username        string
	CurrentPassword string
	NewPassword     string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	GenerateResetToken(ctx context.Context, email string) (string, bool, error)
	VerifyResetToken(ctx context.Context, token string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type service struct {
	repo    Repository
	tokens  *ResetTokens
	mailer  Mailer
	baseURL string
}

func NewService(repo Repository, tokens *ResetTokens, mailer Mailer, baseURL string) Service {
	return &service{
		repo:    repo,
		tokens:  tokens,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Gender = strings.TrimSpace(in.Gender)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Username = strings.TrimSpace(in.Username)

	var problems []string
	if in.FirstName == "" {
		problems = append(problems, "First name is required.")
	}
	if in.LastName == "" {
		problems = append(problems, "Last name is required.")
	}
	if !slices.Contains(Genders, in.Gender) {
		problems = append(problems, "Please select a valid gender.")
	}
	if !strings.Contains(in.Email, "@") {
		problems = append(problems, "A valid email address is required.")
	}
	if !isDigits(in.PhoneNumber) {
		problems = append(problems, "Phone number must contain only digits.")
	}
	if in.Username == "" {
		problems = append(problems, "Username is required.")
	}
	if len(in.Password) < MinPasswordLength {
		problems = append(problems, ErrWeakPassword.Error())
	}
	if len(problems) > 0 {
		return nil, apperr.Invalid(problems...)
	}

	user := &User{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Gender:      in.Gender,
		Email:       NormalizeEmail(in.Email),
		PhoneNumber: in.PhoneNumber,
		Username:    in.Username,
		Role:        RoleUser,
	}
	if err := user.SetPassword(in.Password); err != nil {
		if errors.Is(err, ErrWeakPassword) {
			return nil, err
		}
		log.Error().Err(err).Msg("Failed to hash password")
		return nil, fmt.Errorf("internal error hashing password: %w", err)
	}

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrUsernameTaken) {
			return nil, err
		}
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to create user in repository")
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	user.ID = id

	log.Info().Str("user_id", id.String()).Msg("User registered")
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("Failed to get user by username in repository")
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	if !user.CheckPassword(password) {
		log.Warn().Str("username", user.Username).Msg("Invalid password attempt")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("user_id", id.String()).Msg("Failed to get user by id in repository")
		return nil, fmt.Errorf("failed to get user by id '%s': %w", id, err)
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Username = strings.TrimSpace(in.Username)

	if in.FirstName == "" || in.LastName == "" || in.Gender == "" || in.Email == "" ||
		in.PhoneNumber == "" || in.Username == "" {
		return nil, apperr.Invalid("All fields except password are required.")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, apperr.Invalid("Invalid email address.")
	}
	if !isDigits(in.PhoneNumber) {
		return nil, apperr.Invalid("Phone number must contain only digits.")
	}
	if !slices.Contains(Genders, in.Gender) {
		return nil, apperr.Invalid("Please select a valid gender.")
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Gender = in.Gender
	user.Email = NormalizeEmail(in.Email)
	user.PhoneNumber = in.PhoneNumber
	user.Username = in.Username

	if in.NewPassword != "" {
		if len(in.NewPassword) < MinPasswordLength {
			return nil, ErrWeakPassword
		}
		if !user.CheckPassword(in.CurrentPassword) {
			return nil, ErrWrongPassword
		}
		if err := user.SetPassword(in.NewPassword); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("user_id", id.String()).Msg("Failed to update user")
		return nil, fmt.Errorf("failed to update user by id '%s': %w", id, err)
	}

	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *service) GenerateResetToken(ctx context.Context, email string) (string, bool, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up email: %w", err)
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	token, ok, err := s.GenerateResetToken(ctx, email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate reset token")
		return err
	}
	if !ok {
		log.Debug().Msg("Password reset requested for unregistered email")
		return nil
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.baseURL, token)
	body := fmt.Sprintf("Click the link to reset your password: %s", link)
	if err := s.mailer.Send(ctx, NormalizeEmail(email), "Password Reset Request", body); err != nil {
		log.Error().Err(err).Msg("Failed to send reset email")
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	log.Info().Msg("Password reset link sent")
	return nil
}

func (s *service) VerifyResetToken(ctx context.Context, token string) (string, error) {
	return s.tokens.Verify(ctx, token)
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	email, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up email: %w", err)
	}

	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, user.PasswordHash); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to store new password")
		return fmt.Errorf("failed to update password: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("Password reset")
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
