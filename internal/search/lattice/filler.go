package lattice

// AddFillerBypass adds, for every non-filler node a and reachable non-filler
// node b connected by a path through filler-only intermediates, a direct
// link a->b whose acoustic score is the path sum plus penalty (spec.md
// §4.6 "Filler bypass"). Original filler links are left in place so
// posterior sums over them stay consistent.
func AddFillerBypass(g *Graph, penalty float64) {
	n := len(g.Nodes)
	type bypass struct {
		to    NodeID
		score float64
		end   int // EndFrame of the path's last hop, i.e. the end of node to
	}
	memo := make(map[NodeID][]bypass, n)

	var reach func(v NodeID) []bypass
	reach = func(v NodeID) []bypass {
		if cached, ok := memo[v]; ok {
			return cached
		}
		memo[v] = nil // break cycles defensively; the lattice is acyclic in time so this never triggers
		var out []bypass
		for _, li := range g.Nodes[v].Out {
			link := g.Links[li]
			w := link.To
			if !g.Nodes[w].IsFiller {
				out = append(out, bypass{w, link.Acoustic, link.EndFrame})
				continue
			}
			for _, sub := range reach(w) {
				out = append(out, bypass{sub.to, link.Acoustic + sub.score, sub.end})
			}
		}
		memo[v] = out
		return out
	}

	for v := range g.Nodes {
		if g.Nodes[v].IsFiller {
			continue
		}
		// Only paths that pass through at least one filler node get a bypass;
		// a direct non-filler link already connects its two ends.
		for _, li := range g.Nodes[v].Out {
			link := g.Links[li]
			if !g.Nodes[link.To].IsFiller {
				continue
			}
			for _, b := range reach(link.To) {
				g.addLink(Link{From: NodeID(v), To: b.to, EndFrame: b.end, Acoustic: link.Acoustic + b.score + penalty, Filler: true})
			}
		}
	}
}

// MarkReachability flags every node reachable forward from Initial and
// backward from Final; unflagged nodes are pruned from downstream passes
// (spec.md §4.6 "Reachability").
func MarkReachability(g *Graph) {
	forward := bfs(g, g.Initial, func(n *Node) []int { return n.Out }, func(l Link) NodeID { return l.To })
	backward := bfs(g, g.Final, func(n *Node) []int { return n.In }, func(l Link) NodeID { return l.From })

	for i := range g.Nodes {
		id := NodeID(i)
		g.Nodes[i].Reachable = forward[id] && backward[id]
	}
}

func bfs(g *Graph, start NodeID, adj func(*Node) []int, endpoint func(Link) NodeID) map[NodeID]bool {
	seen := map[NodeID]bool{start: true}
	queue := []NodeID{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, li := range adj(&g.Nodes[v]) {
			w := endpoint(g.Links[li])
			if !seen[w] {
				seen[w] = true
				queue = append(queue, w)
			}
		}
	}
	return seen
}
