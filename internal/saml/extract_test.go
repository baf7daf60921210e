package saml

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// qb64 escapes a base64 payload the way a browser would place it in a
// query string or form body.
func qb64(s string) string {
	return url.QueryEscape(b64(s))
}

func TestFromExchangeQuery(t *testing.T) {
	e := NewExtractor(nil)

	t.Run("saml_request_in_query", func(t *testing.T) {
		cand, ok := e.FromExchange(Exchange{
			URL:    "https://idp.example/sso?SAMLRequest=" + qb64("<AuthnRequest/>") + "&RelayState=ctx42",
			Method: "GET",
		})
		if !ok {
			t.Fatalf("FromExchange() found nothing")
		}
		if cand.Kind != KindRequest {
			t.Fatalf("kind = %q, want %q", cand.Kind, KindRequest)
		}
		if cand.Transport != TransportGET {
			t.Fatalf("transport = %q, want %q", cand.Transport, TransportGET)
		}
		if cand.RelayState != "ctx42" {
			t.Fatalf("relay state = %q, want %q", cand.RelayState, "ctx42")
		}
	})

	t.Run("response_takes_precedence_over_request", func(t *testing.T) {
		cand, ok := e.FromExchange(Exchange{
			URL: "https://sp.example/acs?SAMLRequest=AAAA&SAMLResponse=BBBB",
		})
		if !ok || cand.Kind != KindResponse {
			t.Fatalf("FromExchange() = (%+v, %v), want SAMLResponse candidate", cand, ok)
		}
	})

	t.Run("artifact_in_query", func(t *testing.T) {
		cand, ok := e.FromExchange(Exchange{
			URL: "https://sp.example/acs?SAMLart=AAQAAjy2",
		})
		if !ok || cand.Kind != KindArtifact {
			t.Fatalf("FromExchange() = (%+v, %v), want artifact candidate", cand, ok)
		}
		if cand.Value != "AAQAAjy2" {
			t.Fatalf("value = %q, want raw artifact string", cand.Value)
		}
	})

	t.Run("no_candidate_in_plain_url", func(t *testing.T) {
		if _, ok := e.FromExchange(Exchange{URL: "https://example.com/app?page=2"}); ok {
			t.Fatalf("FromExchange() found a candidate in unrelated URL")
		}
	})
}

func TestFromExchangeFormBody(t *testing.T) {
	e := NewExtractor(nil)

	cand, ok := e.FromExchange(Exchange{
		URL:     "https://sp.example/acs",
		Method:  "POST",
		Body:    []byte("SAMLResponse=" + qb64("<Response/>") + "&RelayState=back"),
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	})
	if !ok {
		t.Fatalf("FromExchange() found nothing in form body")
	}
	if cand.Kind != KindResponse || cand.Transport != TransportPOST {
		t.Fatalf("candidate = %+v, want POST SAMLResponse", cand)
	}
	if cand.RelayState != "back" {
		t.Fatalf("relay state = %q, want %q", cand.RelayState, "back")
	}
}

func TestFromExchangeJSONBody(t *testing.T) {
	e := NewExtractor(nil)

	t.Run("named_field_preferred", func(t *testing.T) {
		body := `{"token":"` + b64("not xml but long enough..") + `","samlResponse":"` + b64("<Response/>") + `"}`
		cand, ok := e.FromExchange(Exchange{URL: "https://api.example/login", Body: []byte(body)})
		if !ok {
			t.Fatalf("FromExchange() found nothing in JSON body")
		}
		if cand.Name != "samlResponse" {
			t.Fatalf("name = %q, want samlResponse", cand.Name)
		}
		if cand.Kind != KindResponse || cand.Transport != TransportJSON {
			t.Fatalf("candidate = %+v, want JSON SAMLResponse", cand)
		}
	})

	t.Run("nested_base64_fallback", func(t *testing.T) {
		body := `{"auth":{"assertion":"` + b64("<Assertion attr=\"v\"/>") + `"}}`
		cand, ok := e.FromExchange(Exchange{URL: "https://api.example/login", Body: []byte(body)})
		if !ok {
			t.Fatalf("FromExchange() found nothing in nested JSON")
		}
		if cand.Kind != KindBase64 {
			t.Fatalf("kind = %q, want %q", cand.Kind, KindBase64)
		}
	})

	t.Run("short_strings_ignored", func(t *testing.T) {
		if _, ok := e.FromExchange(Exchange{URL: "https://api.example", Body: []byte(`{"a":"abcd","b":7}`)}); ok {
			t.Fatalf("FromExchange() found a candidate in short-string JSON")
		}
	})
}

func TestFromExchangeSOAPBody(t *testing.T) {
	e := NewExtractor(nil)

	body := `<?xml version="1.0"?><soap:Envelope><soap:Body><samlp:ArtifactResolve/></soap:Body></soap:Envelope>`
	cand, ok := e.FromExchange(Exchange{URL: "https://idp.example/soap", Body: []byte(body)})
	if !ok {
		t.Fatalf("FromExchange() found nothing in SOAP body")
	}
	if cand.Kind != KindXML || cand.Transport != TransportSOAP {
		t.Fatalf("candidate = %+v, want SOAP SAML-XML", cand)
	}
	if cand.Value != body {
		t.Fatalf("value should be the whole body as-is")
	}

	if _, ok := e.FromExchange(Exchange{URL: "https://x.example", Body: []byte("<html><body>hi</body></html>")}); ok {
		t.Fatalf("FromExchange() matched XML without a saml namespace token")
	}
}

func TestFromHeaders(t *testing.T) {
	e := NewExtractor(nil)

	t.Run("literal_header_name_always_candidate", func(t *testing.T) {
		cands := e.FromHeaders(map[string]string{"SAMLResponse": "zz"}, TransportHeaderRes)
		if len(cands) != 1 {
			t.Fatalf("FromHeaders() returned %d candidates, want 1", len(cands))
		}
		if cands[0].Kind != KindResponse || cands[0].Transport != TransportHeaderRes {
			t.Fatalf("candidate = %+v, want HEADER(res) SAMLResponse", cands[0])
		}
	})

	t.Run("base64_looking_value_tried_speculatively", func(t *testing.T) {
		cands := e.FromHeaders(map[string]string{
			"X-Auth-Token": b64("<Assertion>speculative</Assertion>"),
			"Accept":       "text/html",
		}, TransportHeaderReq)
		if len(cands) != 1 {
			t.Fatalf("FromHeaders() returned %d candidates, want 1", len(cands))
		}
		if cands[0].Kind != KindGeneric {
			t.Fatalf("kind = %q, want %q", cands[0].Kind, KindGeneric)
		}
	})
}

func TestExtraCarrierParams(t *testing.T) {
	e := NewExtractor([]string{"VendorSAMLBlob"})

	cand, ok := e.FromExchange(Exchange{
		URL: "https://sp.example/acs?VendorSAMLBlob=" + qb64("<Response/>"),
	})
	if !ok {
		t.Fatalf("FromExchange() did not honor the extra carrier parameter")
	}
	if cand.Name != "VendorSAMLBlob" {
		t.Fatalf("name = %q, want VendorSAMLBlob", cand.Name)
	}
}

func TestArtifactPlaceholder(t *testing.T) {
	got := ArtifactPlaceholder("AAQAAjy2")
	if !strings.HasPrefix(got, "<!--") || !strings.Contains(got, "AAQAAjy2") {
		t.Fatalf("ArtifactPlaceholder() = %q, want comment embedding the artifact", got)
	}
}

func TestInferKindFromXML(t *testing.T) {
	if k := InferKindFromXML("<samlp:AuthnRequest/>"); k != KindRequest {
		t.Fatalf("InferKindFromXML(request) = %q", k)
	}
	if k := InferKindFromXML("<samlp:Response/>"); k != KindResponse {
		t.Fatalf("InferKindFromXML(response) = %q", k)
	}
	if k := InferKindFromXML("<Assertion/>"); k != KindGeneric {
		t.Fatalf("InferKindFromXML(other) = %q", k)
	}
}
