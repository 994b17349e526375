package i18n

import "net/http"

// Middleware injects a localizer into every request context. The
// configured language wins; the browser's Accept-Language is only consulted
// for messages the configured language lacks.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLocalizer(r.Context(), NewLocalizer(lang, r.Header.Get("Accept-Language")))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
