package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/metrics"
)

type contextKey string

const userIDKey contextKey = "user_id"

// SessionAuthMiddleware проверяет сессионный токен и кладёт ID участника в контекст.
// Формат токена: "<user_id>:<expiry_unix>:<hex hmac>". Токен принимается из
// заголовка Authorization (Bearer) или из query-параметра session.
func SessionAuthMiddleware(secret string) func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte(secret))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("session")
			}
			userID, ok := validateSessionToken(token, key[:], time.Now())
			if !ok {
				metrics.AuthFailuresTotal.Inc()
				WriteError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID возвращает ID участника из контекста запроса. uuid.Nil — аутентификации не было.
func UserID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return id
}

// IssueSessionToken выписывает токен для участника со сроком действия до expiry.
func IssueSessionToken(secret string, userID uuid.UUID, expiry time.Time) string {
	key := sha256.Sum256([]byte(secret))
	payload := userID.String() + ":" + strconv.FormatInt(expiry.Unix(), 10)
	h := hmac.New(sha256.New, key[:])
	h.Write([]byte(payload))
	return payload + ":" + hex.EncodeToString(h.Sum(nil))
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func validateSessionToken(token string, key []byte, now time.Time) (uuid.UUID, bool) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || now.Unix() > expiry {
		return uuid.Nil, false
	}
	expected, err := hex.DecodeString(parts[2])
	if err != nil {
		return uuid.Nil, false
	}
	h := hmac.New(sha256.New, key)
	h.Write([]byte(parts[0] + ":" + parts[1]))
	if !hmac.Equal(h.Sum(nil), expected) {
		return uuid.Nil, false
	}
	return userID, true
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError отправляет JSON с ошибкой.
func WriteError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

// WriteDomainError отображает доменные ошибки в HTTP статусы.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domain.ErrPeriodNotFound), errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidFormat):
		WriteError(w, http.StatusBadRequest, err)
	default:
		WriteError(w, http.StatusInternalServerError, fmt.Errorf("внутренняя ошибка"))
	}
}
