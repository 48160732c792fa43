// Package cookies задаёт имена и параметры куки сервиса: серверная сессия
// и долгоживущий куки узнавания с публичным hash подписчика.
package cookies

import (
	"net/http"
	"time"
)

const (
	// SessionCookie хранит идентификатор серверной сессии.
	SessionCookie = "lp_session"
	// RecognitionCookie хранит публичный hash подписчика и переживает сессию.
	RecognitionCookie = "lp_subscriber"
)

// SetSession устанавливает куки серверной сессии.
func SetSession(w http.ResponseWriter, sessionID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetRecognition устанавливает куки узнавания на весь сайт.
func SetRecognition(w http.ResponseWriter, hash string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RecognitionCookie,
		Value:    hash,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear сбрасывает куки пустым значением с немедленным истечением.
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read возвращает значение куки либо пустую строку.
func Read(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
