package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextKeyUserID is the gin context key holding the verified subject.
const ContextKeyUserID = "userID"

// GinRequireAuth adapts the net/http AuthMiddleware to Gin. Downstream
// handlers read the subject from the request context or from
// c.GetString(ContextKeyUserID); neither re-parses the credential.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false

		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			if id, ok := UserIDFromContext(r.Context()); ok {
				c.Set(ContextKeyUserID, id)
			}
			c.Next()
		})

		auth.RequireAuth(next).ServeHTTP(c.Writer, c.Request)

		// Rejections already wrote the response; stop the Gin chain
		if !passed {
			c.Abort()
		}
	}
}
