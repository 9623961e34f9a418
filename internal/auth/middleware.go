package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	httperrors "github.com/lessonbin/quizdoc/pkg/http/errors"
)

type subjectKey struct{}

// SubjectFromContext returns the token subject set by RequireToken.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok
}

// RequireToken wraps a handler with Bearer token verification.
func RequireToken(tokens *TokenManager, logger zerolog.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "missing Authorization header")
			return
		}
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidRequest, "Authorization header must use Bearer scheme")
			return
		}

		subject, err := tokens.Verify(tokenString)
		if err != nil {
			code := httperrors.ErrCodeInvalidToken
			if errors.Is(err, ErrTokenExpired) {
				code = httperrors.ErrCodeTokenExpired
			}
			logger.Debug().Err(err).Msg("token rejected")
			httperrors.RespondUnauthorized(w, code, "token rejected")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject)))
	}
}
