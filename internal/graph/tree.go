package graph

import "github.com/hightemp/topic-trainer-ai/internal/models"

// CategoryTree returns the category forest. Children keep insertion order.
// A category whose parent is unknown is shown as a root, as is any node that
// corrupted data left unreachable from a root. The returned nodes are a copy.
func (g *Graph) CategoryTree() []*models.CategoryNode {
	g.mu.RLock()
	if g.treeValid {
		defer g.mu.RUnlock()
		return cloneNodes(g.tree)
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.treeValid {
		g.tree = g.buildTree()
		g.treeValid = true
	}
	return cloneNodes(g.tree)
}

func (g *Graph) buildTree() []*models.CategoryNode {
	children := g.childIndex()
	visited := make(map[string]struct{}, len(g.categories))

	var build func(id string) *models.CategoryNode
	build = func(id string) *models.CategoryNode {
		visited[id] = struct{}{}
		node := &models.CategoryNode{Category: g.categories[id]}
		for _, child := range children[id] {
			if _, seen := visited[child]; seen {
				continue
			}
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	var roots []*models.CategoryNode
	for _, id := range g.catOrder {
		p := g.categories[id].ParentID
		if _, known := g.categories[p]; p != "" && known {
			continue
		}
		roots = append(roots, build(id))
	}
	// Anything still unvisited sits on a parent cycle.
	for _, id := range g.catOrder {
		if _, seen := visited[id]; !seen {
			g.log.Warn("category unreachable from any root", "id", id)
			roots = append(roots, build(id))
		}
	}
	return roots
}

func cloneNodes(nodes []*models.CategoryNode) []*models.CategoryNode {
	if nodes == nil {
		return nil
	}
	out := make([]*models.CategoryNode, len(nodes))
	for i, n := range nodes {
		out[i] = &models.CategoryNode{Category: n.Category, Children: cloneNodes(n.Children)}
	}
	return out
}

// Walk calls fn for every node of the forest in depth-first order.
func Walk(nodes []*models.CategoryNode, fn func(n *models.CategoryNode, depth int)) {
	var walk func([]*models.CategoryNode, int)
	walk = func(ns []*models.CategoryNode, depth int) {
		for _, n := range ns {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}
