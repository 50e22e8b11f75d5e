package signal

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

type credentialSource string

const (
	sourceNone        credentialSource = "none"
	sourceHeader      credentialSource = "authorization"
	sourceQuery       credentialSource = "query"
	sourceSubprotocol credentialSource = "subprotocol"
	sourceSession     credentialSource = "session"
)

// subprotocolPrefix marks a token carried in Sec-WebSocket-Protocol, for
// browser clients that cannot set headers on the upgrade request.
const subprotocolPrefix = "bearer."

type credential struct {
	Token    string
	Source   credentialSource
	Protocol string
}

// credentialFrom picks the first credential present, in order: Authorization
// header, token query parameter, subprotocol, cookie session.
func credentialFrom(r *http.Request, sessionToken string) credential {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		return credential{Token: h, Source: sourceHeader}
	}
	if q := strings.TrimSpace(r.URL.Query().Get("token")); q != "" {
		return credential{Token: q, Source: sourceQuery}
	}
	for _, proto := range websocket.Subprotocols(r) {
		if strings.HasPrefix(proto, subprotocolPrefix) && len(proto) > len(subprotocolPrefix) {
			return credential{Token: proto[len(subprotocolPrefix):], Source: sourceSubprotocol, Protocol: proto}
		}
	}
	if sessionToken != "" {
		return credential{Token: sessionToken, Source: sourceSession}
	}
	return credential{Source: sourceNone}
}
