package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-atlas/models"
)

func seedGraph(t *testing.T, env *testEnv, papers []string, edges [][2]string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range papers {
		_, err := env.papers.EnsurePaper(ctx, models.Paper{
			ExternalID: id,
			Title:      "Paper " + id,
			Authors:    []models.Author{{Name: "Author " + id}},
		})
		require.NoError(t, err)
	}
	for _, e := range edges {
		_, err := env.papers.RecordConnection(ctx, e[0], e[1], models.ConnectionCitation, false)
		require.NoError(t, err)
	}
}

func nodeIDs(n *Neighborhood) []string {
	ids := make([]string, 0, len(n.Nodes))
	for _, node := range n.Nodes {
		ids = append(ids, node.ID)
	}
	return ids
}

func TestNeighborhoodDepthOne(t *testing.T) {
	env := newTestEnv(t)
	seedGraph(t, env, []string{"P1", "P2", "P3", "P4"}, [][2]string{
		{"P1", "P2"},
		{"P1", "P3"},
		{"P2", "P4"},
	})
	g := NewGraphService(env.store, 3)

	n, err := g.BuildNeighborhood(context.Background(), "P1", 1)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"P1", "P2", "P3"}, nodeIDs(n))
	assert.ElementsMatch(t, []Link{
		{Source: "P1", Target: "P2", Type: models.ConnectionCitation, Strength: 1},
		{Source: "P1", Target: "P3", Type: models.ConnectionCitation, Strength: 1},
	}, n.Links)

	assert.Equal(t, "P1", n.Nodes[0].ID)
	assert.Equal(t, []string{"Author P1"}, n.Nodes[0].Authors)
}

func TestNeighborhoodDepthBound(t *testing.T) {
	env := newTestEnv(t)
	seedGraph(t, env, []string{"A", "B", "C", "D"}, [][2]string{
		{"A", "B"},
		{"B", "C"},
		{"C", "D"},
	})
	g := NewGraphService(env.store, 5)

	n, err := g.BuildNeighborhood(context.Background(), "A", 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, nodeIDs(n))
	assert.NotContains(t, nodeIDs(n), "D")

	n, err = g.BuildNeighborhood(context.Background(), "A", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, nodeIDs(n))
	assert.Empty(t, n.Links)
}

func TestNeighborhoodTerminatesOnCycles(t *testing.T) {
	env := newTestEnv(t)
	seedGraph(t, env, []string{"A", "B", "C"}, [][2]string{
		{"A", "B"},
		{"B", "C"},
		{"C", "A"},
		{"B", "A"},
	})
	g := NewGraphService(env.store, 10)

	n, err := g.BuildNeighborhood(context.Background(), "A", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, nodeIDs(n))
	assert.Len(t, n.Links, 4)
}

func TestNeighborhoodRootWithoutPaper(t *testing.T) {
	env := newTestEnv(t)
	seedGraph(t, env, []string{"P2"}, [][2]string{{"ghost", "P2"}})
	g := NewGraphService(env.store, 3)

	n, err := g.BuildNeighborhood(context.Background(), "ghost", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"P2"}, nodeIDs(n))
	require.Len(t, n.Links, 1)
	assert.Equal(t, "ghost", n.Links[0].Source)
}

func TestClampDepth(t *testing.T) {
	g := NewGraphService(nil, 3)
	assert.Equal(t, 1, g.ClampDepth(-1))
	assert.Equal(t, 0, g.ClampDepth(0))
	assert.Equal(t, 2, g.ClampDepth(2))
	assert.Equal(t, 3, g.ClampDepth(10))
}
