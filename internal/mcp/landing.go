package mcp

import (
	"html/template"
	"net/http"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}}</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 600px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  a { color: #38bdf8; text-decoration: none; }
  pre { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; margin-bottom: 1.5rem; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.9rem; color: #a5b4fc; }
</style>
</head>
<body>
<div class="card">
  <h1>{{.}}</h1>
  <p class="subtitle">Answers questions from your documents with citations.</p>

  <div class="section-title">Ask over HTTP</div>
  <pre><code>curl -X POST /v1/ask -d '{"query": "What does the guideline recommend?"}'</code></pre>

  <div class="section-title">Endpoints</div>
  <p><span class="endpoint">POST /v1/ask</span> &middot; ask a question</p>
  <p><span class="endpoint">GET /v1/conversations/{id}</span> &middot; conversation history</p>
  <p><a href="/mcp" class="endpoint">/mcp</a> &middot; MCP Streamable HTTP</p>
  <p><a href="/health" class="endpoint">/health</a> &middot; health check</p>
  <p><a href="/metrics" class="endpoint">/metrics</a> &middot; Prometheus metrics</p>
</div>
</body>
</html>`))

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler(appName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingTemplate.Execute(w, appName)
	}
}
