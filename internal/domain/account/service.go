package account

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest holds the registration form.
type RegisterRequest struct {
	FirstName string `validate:"required,max=150"`
	LastName  string `validate:"required,max=150"`
	Email     string `validate:"required,email,max=254"`
	Password  string `validate:"required,min=8,max=72"`
}

// Service encapsulates account business logic.
type Service struct {
	repo     Repository
	notifier Notifier
	tokens   Tokens
	validate *validator.Validate

	// activateURL is the public activation endpoint, token is appended.
	activateURL string
	cost        int
}

// NewService creates an account Service. publicURL is the externally visible
// base URL used to build activation links and may be empty.
func NewService(repo Repository, notifier Notifier, tokens Tokens, publicURL string) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cost:     bcrypt.DefaultCost,
	}
	if publicURL != "" {
		s.activateURL = strings.TrimRight(publicURL, "/") + "/api/accounts/activate/"
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and asks the notifier to send the
// activation email. Notification failures do not fail the registration.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if err := s.validate.StructCtx(ctx, req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, len(fieldErrs))
			for i, fe := range fieldErrs {
				fields[i] = strings.ToLower(fe.Field())
			}
			return nil, &ValidationError{Fields: fields}
		}
		return nil, errors.Wrap(err, "validate")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, errors.Wrap(err, "find by email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		EmailToken:   uuid.New().String(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}

	s.notifyRegistered(ctx, u)
	return u, nil
}

func (s *Service) notifyRegistered(ctx context.Context, u *User) {
	a := Activation{
		Email:     u.Email,
		FirstName: u.FirstName,
		Token:     u.EmailToken,
	}
	if s.activateURL != "" {
		a.Link = s.activateURL + url.PathEscape(u.EmailToken)
	}
	if err := s.notifier.SendActivation(ctx, a); err != nil {
		zctx.From(ctx).Error("Send activation email",
			zap.Int64("user_id", u.ID),
			zap.Error(err),
		)
	}
}

// Activate verifies the email of the profile holding token.
func (s *Service) Activate(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if err := s.repo.Activate(ctx, token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return ErrInvalidToken
		}
		return errors.Wrap(err, "activate")
	}
	return nil
}

// Login checks credentials and returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrAccountNotFound
		}
		return "", errors.Wrap(err, "find by email")
	}
	if !u.Verified {
		return "", ErrNotVerified
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", errors.Wrap(err, "issue token")
	}
	return tok, nil
}
