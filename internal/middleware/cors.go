package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 返回允许挂件跨域调用的中间件
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Customer-ID"},
		MaxAge:         300,
	})
}
