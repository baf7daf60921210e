package session

import (
	"strings"
	"time"

	"github.com/dgnsrekt/saml_tracer/internal/saml"
)

// Message is one captured, decoded, or imported SAML exchange.
type Message struct {
	ID              int64             `json:"id"`
	Kind            saml.Kind         `json:"kind"`
	Transport       saml.Transport    `json:"transport"`
	URL             string            `json:"url,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	XML             string            `json:"xml"`
	Encoded         string            `json:"encoded,omitempty"`
	Encoding        saml.Encoding     `json:"encoding"`
	RelayState      string            `json:"relay_state,omitempty"`
	Method          string            `json:"method,omitempty"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	Status          int               `json:"status,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	RequestID       string            `json:"request_id,omitempty"`
	TabID           string            `json:"tab_id,omitempty"`
}

var requestHeaderAllowList = []string{"content-type", "accept", "authorization", "user-agent"}

var responseHeaderAllowList = []string{"content-type", "location", "set-cookie"}

// FilterRequestHeaders keeps only the request headers worth storing on a message.
func FilterRequestHeaders(headers map[string]string) map[string]string {
	return filterHeaders(headers, requestHeaderAllowList)
}

// FilterResponseHeaders keeps only the response headers worth storing on a message.
func FilterResponseHeaders(headers map[string]string) map[string]string {
	return filterHeaders(headers, responseHeaderAllowList)
}

func filterHeaders(headers map[string]string, allowed []string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string)
	for name, value := range headers {
		lower := strings.ToLower(name)
		for _, a := range allowed {
			if lower == a {
				out[lower] = value
				break
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
