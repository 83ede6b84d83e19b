package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/semillero-erp/semillero-erp/internal/auth"
	"github.com/semillero-erp/semillero-erp/internal/shared"
	"github.com/semillero-erp/semillero-erp/internal/users"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	tokens := auth.NewTokens("clave-de-prueba", time.Hour)
	actor := shared.Actor{UserID: 7, Role: shared.RoleEncargado, UnitID: 3}

	signed, err := tokens.Issue(actor)
	require.NoError(t, err)

	parsed, err := tokens.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, actor, parsed)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := auth.NewTokens("secreto-a", time.Hour).Issue(shared.Actor{UserID: 1, Role: shared.RoleAdmin})
	require.NoError(t, err)

	_, err = auth.NewTokens("secreto-b", time.Hour).Parse(signed)
	var authErr *shared.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := auth.NewTokens("secreto", time.Hour).Parse("no.es.un.token")
	var authErr *shared.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

type staticSource struct {
	porUsername map[string]*users.Usuario
	porID       map[int64]*users.Usuario
}

func (s *staticSource) GetByUsername(_ context.Context, username string) (*users.Usuario, error) {
	return s.porUsername[username], nil
}

func (s *staticSource) Get(_ context.Context, id int64) (*users.Usuario, error) {
	return s.porID[id], nil
}

func newSource(t *testing.T, activo bool) *staticSource {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secreta123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &users.Usuario{
		ID: 7, Username: "ana", Nombre: "Ana",
		PasswordHash: string(hash),
		Rol:          shared.RoleEncargado, IDUnidad: 3, Activo: activo,
	}
	return &staticSource{
		porUsername: map[string]*users.Usuario{"ana": u},
		porID:       map[int64]*users.Usuario{7: u},
	}
}

func TestLoginIssuesParsableToken(t *testing.T) {
	tokens := auth.NewTokens("clave-de-prueba", time.Hour)
	svc := auth.NewService(newSource(t, true), tokens)

	resp, err := svc.Login(context.Background(), auth.LoginRequest{Username: "ana", Password: "secreta123"})
	require.NoError(t, err)
	require.Equal(t, "bearer", resp.TokenType)
	require.Equal(t, int64(3600), resp.ExpiresIn)

	actor, err := tokens.Parse(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, shared.Actor{UserID: 7, Role: shared.RoleEncargado, UnitID: 3}, actor)
}

func TestLoginRejections(t *testing.T) {
	tokens := auth.NewTokens("clave-de-prueba", time.Hour)
	var authErr *shared.AuthorizationError

	svc := auth.NewService(newSource(t, true), tokens)
	_, err := svc.Login(context.Background(), auth.LoginRequest{Username: "ana", Password: "incorrecta"})
	require.ErrorAs(t, err, &authErr)

	_, err = svc.Login(context.Background(), auth.LoginRequest{Username: "nadie", Password: "secreta123"})
	require.ErrorAs(t, err, &authErr)

	// inactive accounts cannot log in even with the right password
	svc = auth.NewService(newSource(t, false), tokens)
	_, err = svc.Login(context.Background(), auth.LoginRequest{Username: "ana", Password: "secreta123"})
	require.ErrorAs(t, err, &authErr)
}
