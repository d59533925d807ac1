package middlewares

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"payflow/src/types"
)

const (
	// BearerTokenKey holds the raw Authorization header value so outbound
	// persistence calls can forward the caller's credential verbatim.
	BearerTokenKey = "bearer_token"
	SubjectKey     = "sub"
	RoleKey        = "role"
)

// AuthMiddleware verifies the bearer JWT and stashes the raw credential for
// downstream forwarding. The persistence service does its own authorization
// scoping with the forwarded token.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	key := []byte(jwtSecret)
	return func(ctx *gin.Context) {
		bearerToken := ctx.Request.Header.Get("Authorization")
		if !strings.HasPrefix(bearerToken, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer credential"})
			return
		}
		reqToken := strings.TrimPrefix(bearerToken, "Bearer ")
		if reqToken == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer credential"})
			return
		}
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil {
			log.Printf("token error: %s\n", err.Error())
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer credential"})
			return
		}
		if !tkn.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer credential"})
			return
		}
		ctx.Set(BearerTokenKey, bearerToken)
		ctx.Set(SubjectKey, claims.Subject)
		ctx.Set(RoleKey, claims.Role)
	}
}

// ForwardedToken returns the Authorization header value captured by
// AuthMiddleware, or "" on unauthenticated routes.
func ForwardedToken(ctx *gin.Context) string {
	return ctx.GetString(BearerTokenKey)
}
