package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func themeCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == ThemeCookie {
			return cookie
		}
	}
	return nil
}

func TestHomeHandlerThemeToggle(t *testing.T) {
	app := newTestApp(t)
	NewHomeHandler(false).Register(app)

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.Header.Set("Referer", "http://example.com/exam")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/exam", resp.Header.Get("Location"))
	cookie := themeCookie(resp)
	require.NotNil(t, cookie)
	require.Equal(t, "dark", cookie.Value)

	req = httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.AddCookie(&http.Cookie{Name: ThemeCookie, Value: "dark"})
	req.Header.Set("Referer", "https://elsewhere.example/phish")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "/", resp.Header.Get("Location"))
	require.Equal(t, "light", themeCookie(resp).Value)
}

func TestHomeHandlerRendersTheme(t *testing.T) {
	app := newTestApp(t)
	NewHomeHandler(false).Register(app)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ThemeCookie, Value: "dark"})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, readBody(t, resp), `data-theme="dark"`)
}
