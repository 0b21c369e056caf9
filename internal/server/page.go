package server

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"weavoor/internal/weave"
)

type pageData struct {
	URL         string
	Result      *weave.Result
	SummaryHTML template.HTML
	Error       *weave.Message
}

// trusted marks goldmark output as safe. goldmark drops raw HTML unless
// html.WithUnsafe is set.
func trusted(s string) template.HTML {
	return template.HTML(s)
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Weavoor</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; }
input[type=text] { width: 70%; padding: 0.4rem; }
.error { color: #b00020; }
.hint { color: #555; }
.success { color: #0a7d28; }
iframe { width: 100%; height: 700px; border: 0; }
</style>
</head>
<body>
<h1>Weavoor</h1>
<p><em>Summaries decay. Connections compound.</em></p>
<form method="post" action="/weave">
<label for="url">Paste any YouTube/podcast URL:</label><br>
<input type="text" id="url" name="url" value="{{.URL}}">
<button type="submit">Weave</button>
</form>
{{with .Error}}
<p class="error">{{.Text}}</p>
{{with .Hint}}<p class="hint">{{.}}</p>{{end}}
{{end}}
{{with .Result}}
<h2>Summary</h2>
{{if $.SummaryHTML}}{{$.SummaryHTML}}{{else}}<pre>{{.Item.SummaryText}}</pre>{{end}}
<p class="success">{{.Message}}</p>
<iframe src="/weaves/{{.Item.ID}}/graph.html"></iframe>
<p><a href="/weaves/{{.Item.ID}}/note.md" download="{{.NoteFileName}}">Download Obsidian note</a></p>
{{end}}
</body>
</html>
`))

func renderPage(w http.ResponseWriter, code int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := page.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("Page render failed")
	}
}
