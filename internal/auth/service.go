package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/semillero-erp/semillero-erp/internal/shared"
	"github.com/semillero-erp/semillero-erp/internal/users"
)

// UserSource resolves accounts for login. users.Repository satisfies it.
type UserSource interface {
	GetByUsername(ctx context.Context, username string) (*users.Usuario, error)
	Get(ctx context.Context, id int64) (*users.Usuario, error)
}

// Service handles credential checks and token issuance.
type Service struct {
	source UserSource
	tokens *Tokens
}

// NewService builds Service.
func NewService(source UserSource, tokens *Tokens) *Service {
	return &Service{source: source, tokens: tokens}
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the signed token plus the account it names.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	Usuario     users.Usuario `json:"usuario"`
}

// Login checks the credentials and signs a token. The error never says which
// half of the credential pair failed.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.source.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Activo {
		return nil, shared.NewAuthorization("credenciales inválidas")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, shared.NewAuthorization("credenciales inválidas")
	}

	actor := shared.Actor{UserID: u.ID, Role: u.Rol, UnitID: u.IDUnidad}
	token, err := s.tokens.Issue(actor)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		Usuario:     *u,
	}, nil
}

// Me loads the account behind an actor, for the /auth/me endpoint.
func (s *Service) Me(ctx context.Context, actor shared.Actor) (*users.Usuario, error) {
	u, err := s.source.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Activo {
		return nil, shared.NewAuthorization("usuario no encontrado o inactivo")
	}
	return u, nil
}
