package gateway

import (
	"bytes"
	"html/template"
	"net/http"
)

// The page posts its payload to the window that opened it and does nothing
// else. html/template encodes both values as JavaScript literals.
var bridgeTemplate = template.Must(template.New("bridge").Parse(`<!doctype html>
<meta charset=utf-8>
<script>
  opener.postMessage({{.Payload}}, {{.Origin}});
</script>
`))

type bridgeRenderer struct {
	origin string
}

func newBridgeRenderer(origin string) *bridgeRenderer {
	return &bridgeRenderer{origin: origin}
}

// render writes the bridge page. payload must be JSON-encodable.
func (b *bridgeRenderer) render(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	err := bridgeTemplate.Execute(&buf, struct {
		Payload any
		Origin  string
	}{Payload: payload, Origin: b.origin})
	if err != nil {
		http.Error(w, "render bridge page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
