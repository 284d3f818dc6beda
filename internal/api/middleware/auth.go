package middleware

import (
	"context"
	"net/http"
	"strings"

	"judge_gate/internal/common"
	"judge_gate/internal/common/security"
	"judge_gate/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const RequestorCtxKey contextKey = "requestor"

func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}

		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		userRole, err := security.GetUserRoleFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), RequestorCtxKey, model.Requestor{UserID: userID, Role: userRole})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestorFromContext(ctx context.Context) (model.Requestor, bool) {
	requestor, ok := ctx.Value(RequestorCtxKey).(model.Requestor)
	return requestor, ok
}
