package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

var ErrInvalidCredentials = errors.New("correo o contraseña incorrectos")
var ErrOperatorAlreadyExists = errors.New("el correo ya está registrado")
var ErrTokenInvalid = errors.New("token inválido o expirado")
var ErrEmailNotAllowed = errors.New("el correo no está autorizado para usar el kiosko")

const (
	RoleAdmin    = "admin"
	RoleOperador = "operador"
)

type AuthService struct {
	operatorRepo  repository.OperatorRepository
	jwtSecret     string
	jwtExpiration time.Duration
	emailAllowed  func(string) bool
	clock         clock.Clock
}

// NewAuthService recibe el filtro de correos autorizados; nil autoriza a todos.
func NewAuthService(operatorRepo repository.OperatorRepository, jwtSecret string, jwtExpiration time.Duration, emailAllowed func(string) bool, clk clock.Clock) *AuthService {
	if emailAllowed == nil {
		emailAllowed = func(string) bool { return true }
	}
	return &AuthService{
		operatorRepo:  operatorRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		emailAllowed:  emailAllowed,
		clock:         clk,
	}
}

func (s *AuthService) EmailAllowed(email string) bool {
	return s.emailAllowed(email)
}

func (s *AuthService) Register(ctx context.Context, dto domain.RegisterOperatorDTO) (*domain.Operator, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	if !s.emailAllowed(email) {
		return nil, ErrEmailNotAllowed
	}
	existing, err := s.operatorRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("error al buscar el operador: %w", err)
	}
	if existing != nil {
		return nil, ErrOperatorAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error al cifrar la contraseña: %w", err)
	}
	role := RoleOperador
	if dto.Role == RoleAdmin {
		role = RoleAdmin
	}

	created, err := s.operatorRepo.Create(ctx, &domain.Operator{
		Email:    email,
		Nombre:   dto.Nombre,
		Password: string(hashed),
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrOperatorAlreadyExists
		}
		return nil, fmt.Errorf("error al crear el operador: %w", err)
	}
	created.Password = ""
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, dto domain.LoginDTO) (*domain.AuthResponseDTO, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	op, err := s.operatorRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error al buscar el operador: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.Password), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !s.emailAllowed(op.Email) {
		return nil, ErrEmailNotAllowed
	}

	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":    strconv.Itoa(op.ID),
		"email":  op.Email,
		"nombre": op.Nombre,
		"role":   op.Role,
		"exp":    now.Add(s.jwtExpiration).Unix(),
		"iat":    now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("error al firmar el token: %w", err)
	}
	return &domain.AuthResponseDTO{Token: signed, Operador: identity(op)}, nil
}

// ValidateToken lo usa el middleware de autenticación.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: formato incorrecto", ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token expirado", ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, fmt.Errorf("%w: token aún no válido", ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// EnsureAdmin crea el administrador inicial si todavía no existe.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.operatorRepo.FindByEmail(ctx, strings.ToLower(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	_, err = s.Register(ctx, domain.RegisterOperatorDTO{Email: email, Nombre: "Administrador", Password: password, Role: RoleAdmin})
	if errors.Is(err, ErrOperatorAlreadyExists) {
		return nil
	}
	return err
}

// Me devuelve la identidad del operador autenticado.
func (s *AuthService) Me(ctx context.Context, id int) (*domain.Identity, error) {
	op, err := s.operatorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ident := identity(op)
	return &ident, nil
}

func identity(op *domain.Operator) domain.Identity {
	return domain.Identity{
		DisplayName: op.Nombre,
		PhotoURL:    op.FotoURL,
		Email:       op.Email,
		Role:        op.Role,
	}
}
