package services

import (
	"context"
	"errors"

	"paper-atlas/storage"
)

// Node is the visual summary of a paper in a neighborhood.
type Node struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Year          int      `json:"year,omitempty"`
	CitationCount int      `json:"citationCount"`
	Venue         string   `json:"venue,omitempty"`
}

// Link is a connection as drawn in the graph.
type Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Type     string `json:"type"`
	Strength int    `json:"strength"`
}

// Neighborhood is the node/link subgraph around a root paper.
type Neighborhood struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

type linkKey struct {
	source, target, kind string
}

// GraphService assembles citation neighborhoods from recorded connections.
type GraphService struct {
	Store    storage.Store
	MaxDepth int
}

// NewGraphService creates a GraphService; requested depths are clamped to maxDepth.
func NewGraphService(store storage.Store, maxDepth int) *GraphService {
	return &GraphService{Store: store, MaxDepth: maxDepth}
}

// ClampDepth maps a requested depth onto [0, MaxDepth]; a negative request means 1.
func (g *GraphService) ClampDepth(depth int) int {
	if depth < 0 {
		depth = 1
	}
	if depth > g.MaxDepth {
		depth = g.MaxDepth
	}
	return depth
}

// BuildNeighborhood walks connections depth-first from rootID. Every id is visited at most
// once and connections are only expanded while depth < maxDepth. A root without a stored
// paper contributes links but no node.
func (g *GraphService) BuildNeighborhood(ctx context.Context, rootID string, maxDepth int) (*Neighborhood, error) {
	visited := make(map[string]bool)
	nodes := make(map[string]Node)
	var order []string
	seenLinks := make(map[linkKey]int)
	var links []Link

	var walk func(id string, depth int) error
	walk = func(id string, depth int) error {
		if visited[id] || depth > maxDepth {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		visited[id] = true

		p, err := g.Store.GetPaper(ctx, id)
		switch {
		case err == nil:
			nodes[id] = Node{
				ID:            p.ExternalID,
				Title:         p.Title,
				Authors:       p.AuthorNames(),
				Year:          p.Year,
				CitationCount: p.CitationCount,
				Venue:         p.Venue,
			}
			order = append(order, id)
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		if depth >= maxDepth {
			return nil
		}

		conns, err := g.Store.ListConnections(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range conns {
			k := linkKey{c.SourceID, c.TargetID, c.Type}
			if idx, ok := seenLinks[k]; ok {
				if c.Strength > links[idx].Strength {
					links[idx].Strength = c.Strength
				}
			} else {
				seenLinks[k] = len(links)
				links = append(links, Link{Source: c.SourceID, Target: c.TargetID, Type: c.Type, Strength: c.Strength})
			}

			other := c.TargetID
			if other == id {
				other = c.SourceID
			}
			if err := walk(other, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(rootID, 0); err != nil {
		return nil, err
	}

	out := &Neighborhood{Nodes: make([]Node, 0, len(order)), Links: links}
	for _, id := range order {
		out.Nodes = append(out.Nodes, nodes[id])
	}
	if out.Links == nil {
		out.Links = []Link{}
	}
	return out, nil
}
