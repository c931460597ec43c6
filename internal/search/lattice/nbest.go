package lattice

import (
	"container/heap"
	"strconv"
	"strings"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

// Hypothesis is one N-best result: a word sequence (oldest-first, including
// the initial and final words) and its accumulated score.
type Hypothesis struct {
	Words []model.WordID
	Score float64
}

type partialPath struct {
	node     NodeID
	words    []model.WordID
	score    float64
	priority float64
}

type pathQueue []partialPath

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].priority > q[j].priority }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x interface{}) { *q = append(*q, x.(partialPath)) }
func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// NBest runs A* search over the lattice, expanding the highest-priority
// partial path (score-so-far + beta of its frontier node) one link at a
// time, and returns up to n distinct-by-word-sequence hypotheses reaching
// the final node (spec.md §4.6 "N-best").
func NBest(g *Graph, lmod lm.Model, lwf, ascale float64, beta *Beta, n int) []Hypothesis {
	if n <= 0 {
		return nil
	}

	start := partialPath{node: g.Initial, words: []model.WordID{g.Nodes[g.Initial].Word}, score: 0}
	start.priority = start.score + beta.Value[g.Initial]

	q := &pathQueue{start}
	heap.Init(q)

	var results []Hypothesis
	seen := make(map[string]bool)

	for q.Len() > 0 && len(results) < n {
		p := heap.Pop(q).(partialPath)

		if p.node == g.Final {
			key := hypKey(p.words)
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, Hypothesis{Words: append([]model.WordID(nil), p.words...), Score: p.score})
			continue
		}

		history := lm.History{}
		for i := len(p.words) - 1; i >= 0 && len(history) < 2; i-- {
			history = append(history, p.words[i])
		}

		for _, li := range g.Nodes[p.node].Out {
			link := g.Links[li]
			w := link.To
			if !g.Nodes[w].Reachable {
				continue
			}
			lmScore := lmod.Score(g.Nodes[w].Word, history) * ln10 * lwf
			newScore := p.score + ascale*link.Acoustic + lmScore
			next := partialPath{
				node:     w,
				words:    append(append([]model.WordID(nil), p.words...), g.Nodes[w].Word),
				score:    newScore,
				priority: newScore + beta.Value[w],
			}
			heap.Push(q, next)
		}
	}

	return results
}

func hypKey(words []model.WordID) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(strconv.Itoa(int(w)))
		b.WriteByte(',')
	}
	return b.String()
}
