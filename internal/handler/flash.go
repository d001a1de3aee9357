package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/gamblr/internal/view"
)

const (
	flashCookieName = "flash"
	flashTTL        = 5 * time.Minute
	flashIssuer     = "gamblr"
)

var flashSigningMethod = jwt.SigningMethodHS256

// flashClaims はフラッシュCookieに格納する署名付きクレーム。
type flashClaims struct {
	Flashes []view.Flash `json:"flashes"`
	jwt.RegisteredClaims
}

// FlashStore はリダイレクト先で1回だけ表示するメッセージをCookieで受け渡す。
// Cookieの値はHS256で署名したJWTで、改ざんされたものや期限切れのものは無視する。
type FlashStore struct {
	secret       []byte
	cookieSecure bool
	cookieDomain string
	now          func() time.Time
}

// NewFlashStore はFlashStoreを生成する。secretにはSESSION_SECRETを渡す。
func NewFlashStore(secret string, cookieSecure bool, cookieDomain string) *FlashStore {
	return &FlashStore{
		secret:       []byte(secret),
		cookieSecure: cookieSecure,
		cookieDomain: cookieDomain,
		now:          time.Now,
	}
}

// Set はフラッシュメッセージをCookieに書き込む。署名に失敗した場合はログのみ記録する。
func (s *FlashStore) Set(w http.ResponseWriter, flashes ...view.Flash) {
	if len(flashes) == 0 {
		return
	}

	now := s.now()
	claims := flashClaims{
		Flashes: flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    flashIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(flashSigningMethod, claims).SignedString(s.secret)
	if err != nil {
		slog.Error("failed to sign flash cookie", slog.String("error", err.Error()))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    signed,
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   int(flashTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop はリクエストのフラッシュメッセージを読み出し、Cookieを削除する。
func (s *FlashStore) Pop(w http.ResponseWriter, r *http.Request) []view.Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	s.clear(w)

	claims, err := s.parse(cookie.Value)
	if err != nil {
		slog.Warn("discarding invalid flash cookie", slog.String("error", err.Error()))
		return nil
	}
	return claims.Flashes
}

func (s *FlashStore) parse(token string) (*flashClaims, error) {
	claims := &flashClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != flashSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{flashSigningMethod.Alg()}),
		jwt.WithIssuer(flashIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *FlashStore) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
