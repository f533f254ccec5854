package api

import (
	"net/http"
	"time"

	service "github.com/okian/fitscore/internal/app"
)

// IdentityCookie carries the anonymous identity token between page loads.
const IdentityCookie = "fitscore_identity"

func identityToken(r *http.Request) string {
	c, err := r.Cookie(IdentityCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// syncIdentityCookie stores the form's identity token once sign-in has
// completed and the browser does not already hold it.
func syncIdentityCookie(w http.ResponseWriter, r *http.Request, f *service.Form) {
	id, ok := f.Session().Current()
	if !ok || id.Token == "" || id.Token == identityToken(r) {
		return
	}
	c := &http.Cookie{
		Name:     IdentityCookie,
		Value:    id.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	}
	if !id.ExpiresAt.IsZero() {
		c.Expires = id.ExpiresAt
		c.MaxAge = int(time.Until(id.ExpiresAt).Seconds())
	}
	http.SetCookie(w, c)
}
