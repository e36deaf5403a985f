package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/models"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned for a bad email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidRole is returned when registering with a role other than
// earner or advertiser.
var ErrInvalidRole = errors.New("invalid role")

type Service interface {
	// Register creates the account. referralCode, when present, is the
	// referring account's ID; the referrer's counter is bumped in the same
	// unit of work. A bad code is ignored rather than failing registration.
	Register(ctx context.Context, email, password, name, role, referralCode string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	store  ledger.Store
	secret []byte
}

// NewService returns an auth service issuing HS256 tokens signed with secret.
func NewService(store ledger.Store, secret string) Service {
	return &service{store: store, secret: []byte(secret)}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) Register(ctx context.Context, email, password, name, role, referralCode string) (*models.Account, error) {
	if role != models.RoleEarner && role != models.RoleAdvertiser {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		if _, err := tx.Accounts().GetByEmail(ctx, email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, ledger.ErrAccountNotFound) {
			return err
		}
		if referrerID, perr := uuid.Parse(referralCode); perr == nil {
			if _, gerr := tx.Accounts().Get(ctx, referrerID); gerr == nil {
				acc.ReferredBy = &referrerID
				if err := tx.Accounts().IncrementReferrals(ctx, referrerID); err != nil {
					return err
				}
			}
		}
		return tx.Accounts().Create(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	acc, err := s.store.Accounts().GetByEmail(ctx, email)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(acc.ID, acc.Role)
}

func (s *service) issueToken(accountID uuid.UUID, role string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}
