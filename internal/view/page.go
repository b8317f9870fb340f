package view

import (
	"net/http"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Page builds TemplateData for the current request: CSRF token, flash and
// the signed-in user are filled in.
func Page(r *http.Request, csrf *shared.CSRFManager, title string, data any) TemplateData {
	sess := shared.SessionFromContext(r.Context())
	td := TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if csrf != nil {
		td.CSRFToken = csrf.EnsureToken(sess)
	}
	if sess != nil {
		td.Flash = sess.PopFlash()
	}
	td.BagCount = shared.BagCountFromContext(r.Context())
	if p, ok := sess.Principal(); ok {
		td.User = &p
	}
	return td
}
