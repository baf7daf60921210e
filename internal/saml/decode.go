package saml

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Encoding describes how a captured payload was packed on the wire.
type Encoding string

const (
	EncodingBase64   Encoding = "base64"
	EncodingDeflate  Encoding = "deflate-raw"
	EncodingNone     Encoding = "none"
	EncodingArtifact Encoding = "artifact"
)

// DecodeError reports a payload that could not be turned into text.
// It is always recoverable: callers treat it as "no SAML artifact here".
type DecodeError struct {
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause == nil {
		return "saml decode: " + e.Reason
	}
	return fmt.Sprintf("saml decode: %s: %v", e.Reason, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Decode converts a base64 payload into XML text. When allowInflate is set
// the decoded bytes are additionally run through raw-deflate decompression;
// redirect-bound SAMLRequest values are conventionally compressed that way.
// Inflate failure is not fatal: the base64-decoded bytes are used as-is.
// Malformed UTF-8 sequences become replacement runes instead of failing.
func Decode(payload string, allowInflate bool) (string, Encoding, error) {
	raw, err := base64.StdEncoding.DecodeString(stripWhitespace(payload))
	if err != nil {
		return "", "", &DecodeError{Reason: "malformed base64", Cause: err}
	}

	encoding := EncodingBase64
	if allowInflate {
		if inflated, err := inflateRaw(raw); err == nil {
			raw = inflated
			encoding = EncodingDeflate
		}
	}

	text := strings.ToValidUTF8(string(raw), "�")
	if text == "" {
		return "", "", &DecodeError{Reason: "decoded payload is empty"}
	}
	return text, encoding, nil
}

func inflateRaw(data []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("inflate produced no output")
	}
	return out, nil
}

// LooksBase64 reports whether a string plausibly carries a base64 payload:
// at least 16 characters, base64 alphabet only, length a multiple of four.
func LooksBase64(s string) bool {
	if len(s) < 16 || len(s)%4 != 0 {
		return false
	}
	padding := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
			if padding {
				return false
			}
		case c == '=':
			padding = true
		default:
			return false
		}
	}
	return true
}

// LooksXML reports whether text, after trimming, begins like an XML document.
func LooksXML(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}

func stripWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
