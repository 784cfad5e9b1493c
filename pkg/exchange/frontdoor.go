package exchange

import (
	"bytes"
	"fmt"
	"html/template"
)

// frontdoorPath is the Salesforce session hand-off endpoint
const frontdoorPath = "/secur/frontdoor.jsp"

// The form POSTs the session ID instead of redirecting with it in the
// query string, keeping the token out of browser history and referrer
// headers.
var frontdoorTemplate = template.Must(template.New("frontdoor").Parse(
	`<html><body onload="document.forms[0].submit()">
  <form method="POST" action="{{.Action}}">
    <input type="hidden" name="sid" value="{{.Sid}}" />
{{- if .RetURL}}
    <input type="hidden" name="retURL" value="{{.RetURL}}" />
{{- end}}
  </form>
</body></html>
`))

// FrontdoorForm renders the auto-submitting HTML form that lands the
// browser inside the target org's session. retURL may be empty; it must
// already be validated by the caller.
func FrontdoorForm(grant *Grant, retURL string) ([]byte, error) {
	var buf bytes.Buffer
	err := frontdoorTemplate.Execute(&buf, struct {
		Action string
		Sid    string
		RetURL string
	}{
		Action: grant.InstanceURL + frontdoorPath,
		Sid:    grant.AccessToken,
		RetURL: retURL,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange: render frontdoor form: %w", err)
	}
	return buf.Bytes(), nil
}
