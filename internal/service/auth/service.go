package auth

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"golang.org/x/crypto/bcrypt"

	"uk.co.dudmesh.socialgraph/internal/model"
	"uk.co.dudmesh.socialgraph/internal/store"
	"uk.co.dudmesh.socialgraph/pkg/crypt"
)

const (
	MaxUsernameLength = 150
	MinPasswordLength = 8
	PasswordCost      = 10
)

var (
	ErrorUsernameRequired = model.ValidationError("username is required")
	ErrorUsernameTooLong  = model.ValidationError(fmt.Sprintf("username must be at most %d characters", MaxUsernameLength))
	ErrorUsernameInvalid  = model.ValidationError("username may only contain letters, digits and @/./+/-/_")
	ErrorEmailInvalid     = model.ValidationError("enter a valid email address")
	ErrorPasswordTooShort = model.ValidationError(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
)

type Config interface {
	TokenTTL() time.Duration
}

type Directory interface {
	CreateUser(ctx context.Context, user *model.User) error
	Fetch(ctx context.Context, id model.UserID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindExact(ctx context.Context, email string) (*model.User, error)
}

type Revocations interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type claims struct {
	Username string `json:"name"`
	jwt.StandardClaims
}

type service struct {
	config      Config
	directory   Directory
	revocations Revocations
	clock       store.Clock
	signingKey  *ecdsa.PrivateKey
	keyID       string
	parser      *jwt.Parser
}

func New(config Config, directory Directory, revocations Revocations, clock store.Clock, signingKey *ecdsa.PrivateKey) *service {
	return &service{
		config:      config,
		directory:   directory,
		revocations: revocations,
		clock:       clock,
		signingKey:  signingKey,
		keyID:       crypt.KeyID(&signingKey.PublicKey),
		// expiry is checked against the service clock
		parser: &jwt.Parser{
			ValidMethods:         []string{jwt.SigningMethodES256.Alg()},
			SkipClaimsValidation: true,
		},
	}
}

func (s *service) Signup(ctx context.Context, params *model.CreateUserParams) (*model.User, error) {
	if err := validate(params); err != nil {
		return nil, err
	}

	existing, err := s.directory.FindExact(ctx, params.Email)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if existing != nil {
		return nil, model.ErrorEmailTaken
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(params.Password), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("generating encoded password: %w", err)
	}

	user := &model.User{
		ID:       model.NewUserID(),
		Username: params.Username,
		Email:    params.Email,
		Password: base64.StdEncoding.EncodeToString(passwordBytes),
	}
	if err := s.directory.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Infof("user %s signed up", user.Username)
	return user, nil
}

func validate(params *model.CreateUserParams) error {
	switch {
	case params.Username == "":
		return ErrorUsernameRequired
	case len(params.Username) > MaxUsernameLength:
		return ErrorUsernameTooLong
	case !govalidator.Matches(params.Username, `^[\w.@+-]+$`):
		return ErrorUsernameInvalid
	case !govalidator.IsEmail(params.Email):
		return ErrorEmailInvalid
	case len(params.Password) < MinPasswordLength:
		return ErrorPasswordTooShort
	}
	return nil
}

// Login checks the password and issues a signed bearer token.
func (s *service) Login(ctx context.Context, params *model.LoginParams) (string, error) {
	user, err := s.directory.FindByUsername(ctx, params.Username)
	if err != nil {
		if errors.Is(err, model.ErrorUserNotFound) {
			return "", model.ErrorInvalidUsernameOrPassword
		}
		return "", err
	}

	hash, err := base64.StdEncoding.DecodeString(user.Password)
	if err != nil {
		return "", fmt.Errorf("decoding password: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(params.Password)); err != nil {
		return "", model.ErrorInvalidUsernameOrPassword
	}

	now := s.clock.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, &claims{
		Username: user.Username,
		StandardClaims: jwt.StandardClaims{
			Id:        cuid2.Generate(),
			Subject:   string(user.ID),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.config.TokenTTL()).Unix(),
		},
	})
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (s *service) parse(tokenString string) (*claims, error) {
	c := &claims{}
	_, err := s.parser.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &s.signingKey.PublicKey, nil
	})
	if err != nil {
		return nil, model.ErrorUnauthenticated
	}
	if c.Id == "" || c.Subject == "" || !c.VerifyExpiresAt(s.clock.Now().Unix(), true) {
		return nil, model.ErrorUnauthenticated
	}
	return c, nil
}

// Authenticate resolves a bearer token to the user it was issued for.
func (s *service) Authenticate(ctx context.Context, tokenString string) (*model.Caller, error) {
	c, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, c.Id)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, model.ErrorUnauthenticated
	}

	user, err := s.directory.Fetch(ctx, model.UserID(c.Subject))
	if err != nil {
		if errors.Is(err, model.ErrorUserNotFound) {
			return nil, model.ErrorUnauthenticated
		}
		return nil, err
	}

	return &model.Caller{ID: user.ID, Username: user.Username}, nil
}

func (s *service) Logout(ctx context.Context, tokenString string) error {
	c, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	if err := s.revocations.Revoke(ctx, c.Id, time.Unix(c.ExpiresAt, 0)); err != nil {
		return err
	}
	log.Infof("user %s logged out", c.Username)
	return nil
}

// PublicKey returns the token verification key as a base64 JWK.
func (s *service) PublicKey() (string, string, error) {
	encoded, err := crypt.EncodePublicKey(&s.signingKey.PublicKey, s.keyID)
	if err != nil {
		return "", "", fmt.Errorf("encoding public key: %w", err)
	}
	return s.keyID, encoded, nil
}
