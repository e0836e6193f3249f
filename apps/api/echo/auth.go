package echoapi

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/identity"
)

const (
	sessionCookieName = "monitor_session"
	stateCookieName   = "monitor_oauth_state"
	stateCookieMaxAge = 10 * time.Minute
)

var (
	// appJWTConfig is the session auth middleware config; initAuth fills it in.
	appJWTConfig middleware.JWTConfig

	sessionLifetime time.Duration
	appName         string
	secureCookies   bool
)

// initAuth wires the session config; must run before routes are registered.
func initAuth(conf *core.Config) {
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "sessionToken",
		Claims:        new(Claims),
		TokenLookup:   "cookie:" + sessionCookieName,
	}
	sessionLifetime = conf.Server.SessionLifetime
	appName = conf.AppName
	secureCookies = !conf.Debug
}

// Claims represents the session claims transmitted via the session cookie.
type Claims struct {
	jwt.StandardClaims
	Login string `json:"login,omitempty"`
	Name  string `json:"name,omitempty"`
	Staff bool   `json:"staff,omitempty"`
}

func (c Claims) session() identity.Session {
	return identity.Session{Login: c.Login, Name: c.Name, Staff: c.Staff}
}

func GetSessionClaims(sess identity.Session) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   sess.Login,
			ExpiresAt: now.Add(sessionLifetime).Unix(),
			IssuedAt:  now.Unix(),
		},
		Login: sess.Login,
		Name:  sess.Name,
		Staff: sess.Staff,
	}
}

// GenerateToken generates a signed JWT token string representing the session Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// peekSession decodes the session cookie outside the auth middleware. Public
// pages use it to greet a signed-in visitor; a missing or bad cookie is not
// an error there.
func peekSession(ctx echo.Context) *identity.Session {
	cookie, err := ctx.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return appJWTConfig.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	sess := claims.session()
	return &sess
}

func setSessionCookie(ctx echo.Context, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(sessionLifetime),
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// newStateToken mints the random state for the OAuth round trip.
func newStateToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "reading random state")
	}
	return hex.EncodeToString(b), nil
}

func setStateCookie(ctx echo.Context, state string) {
	ctx.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateCookieMaxAge),
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popStateCookie returns the pending OAuth state and expires its cookie.
func popStateCookie(ctx echo.Context) string {
	cookie, err := ctx.Cookie(stateCookieName)
	if err != nil {
		return ""
	}
	ctx.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return cookie.Value
}
