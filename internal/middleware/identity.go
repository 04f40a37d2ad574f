package middleware

import "github.com/labstack/echo/v4"

// actorID names whoever is making the request, for rate-limit keys:
// "user:<id>", "admin:<id>" or "anon" when nothing is resolved yet.
func actorID(c echo.Context) string {
	if a, ok := CurrentAdmin(c); ok {
		return "admin:" + a.ID
	}
	if u, ok := CurrentUser(c); ok {
		return "user:" + u.ID
	}
	return "anon"
}
