package graph

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weavoor/internal/models"
)

func neighbor(id string, distance float64) models.Neighbor {
	return models.Neighbor{
		ID:       id,
		Document: "summary of " + id,
		Metadata: map[string]string{models.MetadataURLKey: "https://youtu.be/" + id},
		Distance: distance,
	}
}

func TestBuildNoNeighbors(t *testing.T) {
	g, n := Build("- one\n- two", nil, 0.25)

	assert.Equal(t, 0, n)
	require.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)

	center := g.Nodes[0]
	assert.Equal(t, "NEW", center.ID)
	assert.Equal(t, "#00ff00", center.Color)
	assert.Equal(t, 30, center.Size)
	assert.Equal(t, "- one - two", center.Title)
}

func TestBuildThresholdIsStrict(t *testing.T) {
	neighbors := []models.Neighbor{
		neighbor("a", 0.1),
		neighbor("b", 0.25),
		neighbor("c", 0.2499),
		neighbor("d", 0.9),
	}

	g, n := Build("summary", neighbors, 0.25)

	assert.Equal(t, 2, n)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, []string{"NEW", "a", "c"}, []string{g.Nodes[0].ID, g.Nodes[1].ID, g.Nodes[2].ID})
	assert.Equal(t, "https://youtu.be/a", g.Nodes[1].URL)
}

func TestBuildStarShape(t *testing.T) {
	neighbors := []models.Neighbor{
		neighbor("x", 0.05),
		neighbor("y", 0.1),
		neighbor("z", 0.15),
	}

	g, n := Build("summary", neighbors, 0.25)

	assert.Equal(t, len(g.Nodes)-1, n)
	assert.Equal(t, n, len(g.Edges))
	for i, e := range g.Edges {
		assert.Equal(t, "NEW", e.FromID)
		assert.Equal(t, neighbors[i].ID, e.ToID)
		assert.Equal(t, neighbors[i].Distance, e.Distance)
	}
}

func TestBuildSkipsCollidingIDs(t *testing.T) {
	neighbors := []models.Neighbor{
		neighbor("NEW", 0.05),
		neighbor("a", 0.1),
		neighbor("a", 0.12),
	}

	g, n := Build("summary", neighbors, 0.25)

	assert.Equal(t, 1, n)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "NEW", g.Nodes[0].ID)
	assert.Equal(t, "#00ff00", g.Nodes[0].Color)
	assert.Equal(t, "a", g.Nodes[1].ID)
}

func TestBuildNeighborTitleIsPreview(t *testing.T) {
	long := strings.Repeat("é", 150)
	g, _ := Build("s", []models.Neighbor{{ID: "long", Document: long, Distance: 0.1}}, 0.25)

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, strings.Repeat("é", 100)+"...", g.Nodes[1].Title)

	g, _ = Build("s", []models.Neighbor{{ID: "short", Document: "tiny", Distance: 0.1}}, 0.25)
	assert.Equal(t, "tiny...", g.Nodes[1].Title)
}

func TestGraphJSON(t *testing.T) {
	g, _ := Build("summary", []models.Neighbor{neighbor("a", 0.1)}, 0.25)

	raw, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Edges, 1)
	assert.Equal(t, "NEW", decoded.Edges[0]["from"])
	assert.Equal(t, "a", decoded.Edges[0]["to"])
	assert.Equal(t, "a", decoded.Nodes[1]["id"])
}

func TestRenderHTML(t *testing.T) {
	g, _ := Build("new summary", []models.Neighbor{neighbor("abc123", 0.1)}, 0.25)

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, g))

	page := buf.String()
	assert.Contains(t, page, "vis-network")
	assert.Contains(t, page, "#1a1a1a")
	assert.Contains(t, page, "600px")
	assert.Contains(t, page, `"white"`)
	assert.Contains(t, page, "abc123")
	assert.Contains(t, page, "new summary")
}

func TestRenderHTMLEscapesScript(t *testing.T) {
	g, _ := Build("</script><b>x</b>", nil, 0.25)

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, g))
	assert.NotContains(t, buf.String(), "</script><b>")
}
