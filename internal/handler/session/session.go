package session

import (
	"net/http"
	"time"

	"FinCast/internal/render"
	"FinCast/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	CookieName  = "fincast_sid"
	ThemeCookie = "theme"
)

const themeMaxAge = 365 * 24 * time.Hour

// Dashboard returns the caller's dashboard, starting a session and setting
// its cookie when the request carries none or an expired one.
func Dashboard(c echo.Context, store *usecase.SessionStore) *usecase.Dashboard {
	id := ""
	if ck, err := c.Cookie(CookieName); err == nil {
		id = ck.Value
	}
	d, created := store.Acquire(id, Theme(c))
	if created {
		c.SetCookie(&http.Cookie{
			Name:     CookieName,
			Value:    d.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return d
}

// Lookup returns the caller's dashboard without creating one.
func Lookup(c echo.Context, store *usecase.SessionStore) (*usecase.Dashboard, bool) {
	ck, err := c.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	return store.Get(ck.Value)
}

// Theme reads the theme cookie; light when absent.
func Theme(c echo.Context) render.Theme {
	ck, err := c.Cookie(ThemeCookie)
	if err != nil {
		return render.ThemeLight
	}
	return render.ParseTheme(ck.Value)
}

// SetTheme persists t in the theme cookie.
func SetTheme(c echo.Context, t render.Theme) {
	c.SetCookie(&http.Cookie{
		Name:     ThemeCookie,
		Value:    string(t),
		Path:     "/",
		MaxAge:   int(themeMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
}
