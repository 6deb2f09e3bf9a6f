package middleware

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"kiosko_estacionamiento/internal/service"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	OperatorIDKey           = "operatorID"
	OperatorRoleKey         = "operatorRole"
	OperatorEmailKey        = "operatorEmail"
	WebSocketTokenParam     = "token"
)

type AuthMiddleware struct {
	authService *service.AuthService
}

func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate valida el JWT y deja la identidad del operador en el contexto.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Falta el header Authorization"})
			return
		}
		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Formato de Authorization inválido"})
			return
		}
		m.authenticate(c, fields[1])
	}
}

// AuthenticateWebSocket es Authenticate para GET /ws: el navegador no puede
// enviar headers en el handshake, así que el token también se acepta en
// ?token=.
func (m *AuthMiddleware) AuthenticateWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query(WebSocketTokenParam)
		if fields := strings.Fields(c.GetHeader(AuthorizationHeaderKey)); len(fields) == 2 && strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			token = fields[1]
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Falta el token"})
			return
		}
		m.authenticate(c, token)
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context, token string) {
	claims, err := m.authService.ValidateToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado", "details": err.Error()})
		return
	}

	sub, okSub := claims["sub"].(string)
	role, okRole := claims["role"].(string)
	email, okEmail := claims["email"].(string)
	id, errID := strconv.Atoi(sub)
	if !okSub || !okRole || !okEmail || errID != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Datos del operador inválidos en el token"})
		return
	}

	c.Set(OperatorIDKey, id)
	c.Set(OperatorRoleKey, role)
	c.Set(OperatorEmailKey, email)
	c.Next()
}

// RequireAllowedEmail rechaza a los operadores cuyo correo salió de la lista
// autorizada después de emitido el token.
func (m *AuthMiddleware) RequireAllowedEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(OperatorEmailKey)
		if email == "" || !m.authService.EmailAllowed(email) {
			log.Printf("RequireAllowedEmail: acceso denegado para '%s'", email)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": service.ErrEmailNotAllowed.Error()})
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) AuthorizeRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(OperatorRoleKey)
		if role == "" {
			log.Printf("AuthorizeRole: no hay rol en el contexto (falta Authenticate)")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acceso denegado (sin rol)"})
			return
		}
		for _, r := range requiredRoles {
			if role == r {
				c.Next()
				return
			}
		}
		log.Printf("AuthorizeRole: rol '%s' sin acceso (requiere %v)", role, requiredRoles)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acceso denegado para su rol"})
	}
}
