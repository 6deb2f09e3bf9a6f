package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository/memory"
)

func allowOnly(emails ...string) func(string) bool {
	return func(e string) bool {
		for _, x := range emails {
			if strings.EqualFold(x, e) {
				return true
			}
		}
		return false
	}
}

func TestAuthRegisterLoginValidate(t *testing.T) {
	clk := clock.NewFake(ahora)
	svc := NewAuthService(memory.NewOperatorRepository(), "secreto", 12*time.Hour, allowOnly("caja@kiosko.cl"), clk)
	ctx := context.Background()

	op, err := svc.Register(ctx, domain.RegisterOperatorDTO{Email: "Caja@Kiosko.cl", Nombre: "Caja 1", Password: "clave123"})
	require.NoError(t, err)
	assert.Equal(t, "caja@kiosko.cl", op.Email)
	assert.Equal(t, RoleOperador, op.Role)
	assert.Empty(t, op.Password)

	_, err = svc.Register(ctx, domain.RegisterOperatorDTO{Email: "caja@kiosko.cl", Nombre: "Otra", Password: "clave123"})
	assert.ErrorIs(t, err, ErrOperatorAlreadyExists)
	_, err = svc.Register(ctx, domain.RegisterOperatorDTO{Email: "intruso@otro.cl", Nombre: "X", Password: "clave123"})
	assert.ErrorIs(t, err, ErrEmailNotAllowed)

	_, err = svc.Login(ctx, domain.LoginDTO{Email: "caja@kiosko.cl", Password: "mala"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(ctx, domain.LoginDTO{Email: "caja@kiosko.cl", Password: "clave123"})
	require.NoError(t, err)
	assert.Equal(t, "Caja 1", res.Operador.DisplayName)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "caja@kiosko.cl", claims["email"])
	assert.Equal(t, RoleOperador, claims["role"])
	assert.Equal(t, "1", claims["sub"])

	me, err := svc.Me(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "caja@kiosko.cl", me.Email)

	clk.Advance(13 * time.Hour)
	_, err = svc.ValidateToken(res.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.ValidateToken("basura")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
