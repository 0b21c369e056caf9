package graph

import (
	"fmt"
	"html/template"
	"io"
)

const (
	background = "#1a1a1a"
	fontColor  = "white"
	height     = "600px"
)

var pageTemplate = template.Must(template.New("graph").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>weavoor graph</title>
<script src="https://unpkg.com/vis-network@9.1.9/standalone/umd/vis-network.min.js"></script>
<style>
body { margin: 0; background-color: {{.Background}}; }
#graph { width: 100%; height: {{.Height}}; background-color: {{.Background}}; }
</style>
</head>
<body>
<div id="graph"></div>
<script>
var nodes = new vis.DataSet({{.Graph.Nodes}});
var edges = new vis.DataSet({{.Graph.Edges}});
var options = {
  nodes: { shape: "dot", size: 16, font: { color: {{.FontColor}} } },
  edges: { color: { inherit: true } },
  physics: { stabilization: { iterations: 200 } }
};
new vis.Network(document.getElementById("graph"), { nodes: nodes, edges: edges }, options);
</script>
</body>
</html>
`))

// RenderHTML writes g as a standalone interactive page.
func RenderHTML(w io.Writer, g *Graph) error {
	if g == nil {
		g = &Graph{}
	}
	data := struct {
		Graph      *Graph
		Background template.CSS
		Height     template.CSS
		FontColor  string
	}{
		Graph:      g,
		Background: template.CSS(background),
		Height:     template.CSS(height),
		FontColor:  fontColor,
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}
	return nil
}
