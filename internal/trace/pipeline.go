package trace

import (
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/saml_tracer/internal/export"
	"github.com/dgnsrekt/saml_tracer/internal/relay"
	"github.com/dgnsrekt/saml_tracer/internal/saml"
	"github.com/dgnsrekt/saml_tracer/internal/session"
)

const pendingMaxAge = 5 * time.Minute

// pendingRequest remembers enough about an outbound request to attribute
// response-side extraction and attachment once the response arrives.
type pendingRequest struct {
	URL       string
	Method    string
	TabID     string
	Timestamp time.Time
}

// Pipeline routes interception and tab-lifecycle events into the session
// registry: extraction, decoding, dedup/store, response attachment, and
// update notification all happen here. One ingress method per event kind;
// a fault while processing one event is contained to that event.
type Pipeline struct {
	registry  *session.Registry
	extractor *saml.Extractor
	broker    *relay.Broker
	archive   *export.ArchiveRegistry

	pending   map[string]*pendingRequest
	pendingMu sync.Mutex

	done chan struct{}
}

func NewPipeline(registry *session.Registry, extractor *saml.Extractor, broker *relay.Broker, archive *export.ArchiveRegistry) *Pipeline {
	p := &Pipeline{
		registry:  registry,
		extractor: extractor,
		broker:    broker,
		archive:   archive,
		pending:   make(map[string]*pendingRequest),
		done:      make(chan struct{}),
	}
	go p.cleanupLoop()
	return p
}

func (p *Pipeline) Close() {
	close(p.done)
}

// OnRequestWillBeSent runs the body/query extraction pass and the request
// header pass for one outbound exchange. Traffic from tabs outside any
// session's scope is dropped without further inspection.
func (p *Pipeline) OnRequestWillBeSent(tabID string, ev *network.EventRequestWillBeSent) {
	defer p.containFault("request", tabID)

	sess, ok := p.registry.ResolveByTab(tabID)
	if !ok {
		return
	}

	requestID := string(ev.RequestID)
	headers := headerMapToStringMap(ev.Request.Headers)
	body := decodePostData(ev.Request)

	p.pendingMu.Lock()
	p.pending[requestID] = &pendingRequest{
		URL:       ev.Request.URL,
		Method:    ev.Request.Method,
		TabID:     tabID,
		Timestamp: time.Now(),
	}
	p.pendingMu.Unlock()

	ex := saml.Exchange{
		URL:     ev.Request.URL,
		Method:  ev.Request.Method,
		Body:    body,
		Headers: headers,
	}

	if cand, found := p.extractor.FromExchange(ex); found {
		p.commit(sess, cand, ex.URL, ex.Method, headers, requestID, tabID)
	}
	for _, cand := range p.extractor.FromHeaders(headers, saml.TransportHeaderReq) {
		p.commit(sess, cand, ex.URL, ex.Method, headers, requestID, tabID)
	}
}

// OnResponseReceived attaches response metadata to the correlated message
// and runs the response header pass.
func (p *Pipeline) OnResponseReceived(tabID string, ev *network.EventResponseReceived) {
	defer p.containFault("response", tabID)

	requestID := string(ev.RequestID)

	p.pendingMu.Lock()
	pending, tracked := p.pending[requestID]
	delete(p.pending, requestID)
	p.pendingMu.Unlock()

	sess, ok := p.registry.ResolveByTab(tabID)
	if !ok {
		return
	}

	headers := headerMapToStringMap(ev.Response.Headers)
	if sess.AttachResponse(requestID, int(ev.Response.Status), session.FilterResponseHeaders(headers)) {
		p.broker.Publish(sess.WindowID, sess.MessageCount())
	}

	url := ev.Response.URL
	method := ""
	if tracked {
		if url == "" {
			url = pending.URL
		}
		method = pending.Method
	}
	for _, cand := range p.extractor.FromHeaders(headers, saml.TransportHeaderRes) {
		p.commit(sess, cand, url, method, nil, requestID, tabID)
	}
}

// OnLoadingFailed forgets the pending request.
func (p *Pipeline) OnLoadingFailed(tabID string, ev *network.EventLoadingFailed) {
	p.pendingMu.Lock()
	delete(p.pending, string(ev.RequestID))
	p.pendingMu.Unlock()
}

// OnTabCreated propagates session scope to tabs spawned by tracked tabs.
func (p *Pipeline) OnTabCreated(tabID, openerTabID string) {
	p.registry.OnTabCreated(tabID, openerTabID)
}

// OnTabRemoved narrows the owning session's scope.
func (p *Pipeline) OnTabRemoved(tabID string) {
	p.registry.OnTabRemoved(tabID)
}

// OnWindowRemoved destroys the window's session.
func (p *Pipeline) OnWindowRemoved(windowID string) {
	p.registry.OnWindowRemoved(windowID)
}

// commit decodes one candidate and, when it yields XML-looking text,
// appends the resulting message. Decode failures are silent: they mean
// "no SAML found here", not an error.
func (p *Pipeline) commit(sess *session.Session, cand saml.Candidate, url, method string, requestHeaders map[string]string, requestID, tabID string) {
	m := &session.Message{
		Kind:           cand.Kind,
		Transport:      cand.Transport,
		URL:            url,
		Timestamp:      time.Now().UTC(),
		RelayState:     cand.RelayState,
		Method:         method,
		RequestHeaders: session.FilterRequestHeaders(requestHeaders),
		RequestID:      requestID,
		TabID:          tabID,
	}

	switch cand.Kind {
	case saml.KindArtifact:
		// Artifact values are never base64-decoded; the assertion lives
		// on a back channel this tracer does not reach.
		m.XML = saml.ArtifactPlaceholder(cand.Value)
		m.Encoded = cand.Value
		m.Encoding = saml.EncodingArtifact
	case saml.KindXML:
		m.XML = cand.Value
		m.Encoding = saml.EncodingNone
	default:
		allowInflate := cand.Kind == saml.KindRequest || cand.Transport == saml.TransportGET
		xml, encoding, err := saml.Decode(cand.Value, allowInflate)
		if err != nil {
			slog.Debug("candidate did not decode", "name", cand.Name, "transport", cand.Transport, "error", err)
			return
		}
		if !saml.LooksXML(xml) {
			slog.Debug("candidate decoded to non-XML text", "name", cand.Name, "transport", cand.Transport)
			return
		}
		m.XML = xml
		m.Encoded = cand.Value
		m.Encoding = encoding
	}

	if !sess.Append(m) {
		slog.Debug("duplicate message dropped", "window_id", sess.WindowID, "kind", m.Kind)
		return
	}

	slog.Info("saml message captured",
		"window_id", sess.WindowID,
		"id", m.ID,
		"kind", m.Kind,
		"transport", m.Transport,
		"encoding", m.Encoding,
		"url", truncateURL(m.URL),
	)

	p.broker.Publish(sess.WindowID, sess.MessageCount())
	if p.archive != nil {
		p.archive.Write(sess.WindowID, *m)
	}
}

func (p *Pipeline) containFault(event, tabID string) {
	if r := recover(); r != nil {
		slog.Error("event handler fault contained", "event", event, "tab_id", tabID, "panic", r)
	}
}

func (p *Pipeline) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.cleanupStale()
		case <-p.done:
			return
		}
	}
}

func (p *Pipeline) cleanupStale() {
	threshold := time.Now().Add(-pendingMaxAge)

	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	for id, pending := range p.pending {
		if pending.Timestamp.Before(threshold) {
			delete(p.pending, id)
		}
	}
}

func decodePostData(req *network.Request) []byte {
	if !req.HasPostData || len(req.PostDataEntries) == 0 {
		return nil
	}
	var decoded []byte
	for _, entry := range req.PostDataEntries {
		if entry.Bytes == "" {
			continue
		}
		part, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			decoded = append(decoded, []byte(entry.Bytes)...)
		} else {
			decoded = append(decoded, part...)
		}
	}
	return decoded
}

func headerMapToStringMap(headers map[string]any) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
