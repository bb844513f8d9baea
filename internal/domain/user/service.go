package user

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/kart-store/internal/domain"
)

// CartCreator attaches a fresh cart to a newly registered user.
type CartCreator interface {
	CreateCart(ctx context.Context, userID int64) (int64, error)
}

// RegisterRequest holds the input for registering a user.
type RegisterRequest struct {
	Username        string
	Password        string
	ConfirmPassword string
}

// Service encapsulates user registration and directory lookups.
type Service struct {
	users Repository
	carts CartCreator
	cost  int
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates a user Service.
func NewService(users Repository, carts CartCreator, opts ...Option) *Service {
	s := &Service{
		users: users,
		carts: carts,
		cost:  bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register validates the request, stores the user with a bcrypt-hashed
// password and attaches a new cart.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if len(req.Password) < MinPasswordLength {
		return nil, &InvalidPasswordError{Reason: "must be at least 7 characters"}
	}
	if req.Password != req.ConfirmPassword {
		return nil, &InvalidPasswordError{Reason: "confirmation does not match"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, domain.Wrap(err, "create user")
	}

	cartID, err := s.carts.CreateCart(ctx, u.ID)
	if err != nil {
		return nil, domain.Wrap(err, "create cart")
	}
	u.CartID = cartID

	zctx.From(ctx).Info("User registered",
		zap.Int64("user_id", u.ID),
		zap.String("username", u.Username),
	)
	return u, nil
}

// CheckPassword reports whether password matches the stored hash.
func (s *Service) CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

// GetByID resolves a user by identifier.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Wrap(err, "get user")
	}
	return u, nil
}

// FindByUsername resolves a user by username.
func (s *Service) FindByUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, domain.Wrap(err, "find user")
	}
	return u, nil
}
