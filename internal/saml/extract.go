package saml

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind classifies the protocol role of a captured payload.
type Kind string

const (
	KindRequest  Kind = "SAMLRequest"
	KindResponse Kind = "SAMLResponse"
	KindArtifact Kind = "SAMLArtifact"
	KindXML      Kind = "SAML-XML"
	KindBase64   Kind = "SAMLBase64"
	KindGeneric  Kind = "SAML"
)

// Transport records which detection path produced a message.
type Transport string

const (
	TransportGET       Transport = "GET"
	TransportPOST      Transport = "POST"
	TransportJSON      Transport = "JSON"
	TransportSOAP      Transport = "SOAP"
	TransportHeaderReq Transport = "HEADER(req)"
	TransportHeaderRes Transport = "HEADER(res)"
	TransportImport    Transport = "IMPORT"
)

// Exchange is one observed outbound HTTP exchange, as flattened from the
// interception facility's request event.
type Exchange struct {
	URL     string
	Method  string
	Body    []byte
	Headers map[string]string
}

// Candidate is a located SAML payload before decoding. For artifact and
// SOAP candidates Value is stored as-is; everything else still has to
// survive base64 decoding to XML-looking text before it becomes a message.
type Candidate struct {
	Name       string
	Value      string
	Kind       Kind
	Transport  Transport
	RelayState string
}

// carrier parameter names, in precedence order.
var carrierParams = []struct {
	name string
	kind Kind
}{
	{"SAMLResponse", KindResponse},
	{"SAMLRequest", KindRequest},
	{"SAMLart", KindArtifact},
}

// Extractor locates SAML payloads in observed exchanges. Stateless apart
// from optional extra carrier parameter names from the detection profile.
type Extractor struct {
	extraParams []string
}

func NewExtractor(extraParams []string) *Extractor {
	return &Extractor{extraParams: extraParams}
}

// FromExchange inspects the URL query, form body, JSON body, and SOAP/XML
// body of one exchange, in that order, and returns at most one candidate.
// First match wins; the strategies are independent, not layered.
func (e *Extractor) FromExchange(ex Exchange) (Candidate, bool) {
	if c, ok := e.fromQuery(ex.URL); ok {
		return c, true
	}
	if len(ex.Body) == 0 {
		return Candidate{}, false
	}
	if isFormBody(ex.Headers) {
		if c, ok := e.fromForm(string(ex.Body)); ok {
			return c, true
		}
	}
	if c, ok := fromJSONBody(ex.Body); ok {
		return c, true
	}
	if c, ok := fromSOAPBody(ex.Body); ok {
		return c, true
	}
	return Candidate{}, false
}

// FromHeaders scans one header set independently of the body/query pass.
// A header literally named SAMLRequest/SAMLResponse is always a candidate;
// any other header whose value merely looks like base64 is tried
// speculatively, which is known to pick up unrelated tokens.
func (e *Extractor) FromHeaders(headers map[string]string, direction Transport) []Candidate {
	var out []Candidate
	for name, value := range headers {
		lower := strings.ToLower(name)
		named := lower == "samlresponse" || lower == "samlrequest"
		if !named && !LooksBase64(value) {
			continue
		}
		out = append(out, Candidate{
			Name:      name,
			Value:     value,
			Kind:      kindFromName(name, KindGeneric),
			Transport: direction,
		})
	}
	return out
}

func (e *Extractor) fromQuery(rawURL string) (Candidate, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Candidate{}, false
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return Candidate{}, false
	}
	return e.fromValues(query, TransportGET)
}

func (e *Extractor) fromForm(body string) (Candidate, bool) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return Candidate{}, false
	}
	return e.fromValues(values, TransportPOST)
}

func (e *Extractor) fromValues(values url.Values, transport Transport) (Candidate, bool) {
	for _, p := range carrierParams {
		if v := values.Get(p.name); v != "" {
			return Candidate{
				Name:       p.name,
				Value:      v,
				Kind:       p.kind,
				Transport:  transport,
				RelayState: values.Get("RelayState"),
			}, true
		}
	}
	for _, name := range e.extraParams {
		if v := values.Get(name); v != "" {
			return Candidate{
				Name:       name,
				Value:      v,
				Kind:       kindFromName(name, KindGeneric),
				Transport:  transport,
				RelayState: values.Get("RelayState"),
			}, true
		}
	}
	return Candidate{}, false
}

func fromSOAPBody(body []byte) (Candidate, bool) {
	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, "<") {
		return Candidate{}, false
	}
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "samlp:") && !strings.Contains(lower, "saml:") {
		return Candidate{}, false
	}
	return Candidate{
		Name:      "body",
		Value:     text,
		Kind:      KindXML,
		Transport: TransportSOAP,
	}, true
}

func isFormBody(headers map[string]string) bool {
	for name, value := range headers {
		if strings.EqualFold(name, "content-type") {
			return strings.Contains(strings.ToLower(value), "application/x-www-form-urlencoded")
		}
	}
	return false
}

func kindFromName(name string, fallback Kind) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "response"):
		return KindResponse
	case strings.Contains(lower, "request"):
		return KindRequest
	}
	return fallback
}

// ArtifactPlaceholder synthesizes the stored XML for an artifact-binding
// message. The artifact is only a back-channel reference; the assertion
// itself never crosses the front channel, so there is nothing to decode.
func ArtifactPlaceholder(artifact string) string {
	return fmt.Sprintf("<!-- SAML artifact binding: the assertion is resolved over a back channel and is not visible to the browser. Artifact: %s -->", artifact)
}

// InferKindFromXML guesses the kind of an imported XML blob from its content.
func InferKindFromXML(xml string) Kind {
	switch {
	case strings.Contains(xml, "AuthnRequest"):
		return KindRequest
	case strings.Contains(xml, "Response"):
		return KindResponse
	}
	return KindGeneric
}
