// Package mail delivers invitation messages over SMTP.
package mail

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
	"time"
)

// Invite is one invitation message.
type Invite struct {
	To          string        `json:"to"`
	AcceptLink  string        `json:"accept_link"`
	DeclineLink string        `json:"decline_link"`
	ExpiresIn   time.Duration `json:"expires_in"`
}

// ExpiresInHours renders the advertised window for templates.
func (i Invite) ExpiresInHours() int {
	return int(i.ExpiresIn / time.Hour)
}

// Links builds the accept and decline links for token under baseURL.
func Links(baseURL, token string) (accept, decline string) {
	q := url.Values{"token": {token}}.Encode()
	return baseURL + "/set-password?" + q, baseURL + "/decline-invitation?" + q
}

const inviteSubject = "You're invited to join the workspace"

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlInvite = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/invite.html.tmpl"))
	textInvite = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/invite.txt.tmpl"))
)

func renderInvite(inv Invite) (htmlBody, plainBody string, err error) {
	var h, p bytes.Buffer
	if err := htmlInvite.Execute(&h, inv); err != nil {
		return "", "", err
	}
	if err := textInvite.Execute(&p, inv); err != nil {
		return "", "", err
	}
	return h.String(), p.String(), nil
}
