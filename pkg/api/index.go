package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/platinummonkey/backwindow/pkg/httputil"
)

var indexTemplate = template.Must(template.New("index").Parse(
	`<!DOCTYPE html>
<html>
<head>
  <title>backwindow</title>
  <script src="https://accounts.google.com/gsi/client" async defer></script>
</head>
<body>
  <h1>backwindow</h1>
  <p>Sign in to continue to your org.</p>
  <div id="g_id_onload"
       data-client_id="{{.GoogleClientID}}"
       data-login_uri="{{.GoogleLoginURI}}"
       data-auto_prompt="false"></div>
  <div class="g_id_signin" data-type="standard"></div>
  <p><a href="/auth/salesforce">Sign in with Salesforce</a></p>
</body>
</html>
`))

// handleIndex serves the login page. Already-authenticated sessions with
// a pending hand-off resume it immediately.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(r)
	if err != nil {
		s.log.WithError(err).Error("session load failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}
	if sess.Authenticated() && sess.RedirectPath != "" {
		target := sess.ConsumeRedirectPath("/")
		if err := s.sessions.Save(r.Context(), sess); err != nil {
			s.log.WithError(err).Error("session save failed")
			httputil.WriteInternalError(w, "session unavailable")
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	var buf bytes.Buffer
	err = indexTemplate.Execute(&buf, struct {
		GoogleClientID string
		GoogleLoginURI string
	}{
		GoogleClientID: s.googleClientID,
		GoogleLoginURI: "/auth/google/callback",
	})
	if err != nil {
		s.log.WithError(err).Error("index render failed")
		httputil.WriteInternalError(w, "render failed")
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}
