package lattice

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

// WriteText serializes g in the lattice text format of spec.md §6: a header
// block (Frames, UtteranceID, node count), the node table, the initial and
// final node ids, and the edge table.
func WriteText(w io.Writer, g *Graph, numFrames int, utteranceID string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Frames %d\n", numFrames)
	fmt.Fprintf(bw, "UtteranceID %s\n", utteranceID)
	fmt.Fprintf(bw, "Nodes %d:\n", len(g.Nodes))
	for i, n := range g.Nodes {
		fmt.Fprintf(bw, "%d %d %d %d %d\n", i, n.Word, n.StartFrame, n.EarliestEnd, n.LatestEnd)
	}
	fmt.Fprintf(bw, "Initial %d\n", g.Initial)
	fmt.Fprintf(bw, "Final %d\n", g.Final)
	fmt.Fprintln(bw, "Edges:")
	for _, l := range g.Links {
		fmt.Fprintf(bw, "%d %d %g %d\n", l.From, l.To, l.Acoustic, l.EndFrame)
	}
	fmt.Fprintln(bw, "End")

	return bw.Flush()
}

// ReadText parses the lattice text format, returning the reconstructed
// graph alongside the header's frame count and utterance id. Word ids are
// read back verbatim (spec.md: "words are resolved by a parallel symbol
// table the reader supplies" — that resolution is the caller's concern,
// not this package's; this function only round-trips the integer ids
// WriteText emitted).
func ReadText(r io.Reader) (g *Graph, numFrames int, utteranceID string, err error) {
	sc := bufio.NewScanner(r)
	g = &Graph{}

	readLine := func() (string, bool) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				return line, true
			}
		}
		return "", false
	}

	line, ok := readLine()
	if !ok {
		return nil, 0, "", fmt.Errorf("lattice: empty input")
	}
	if _, err := fmt.Sscanf(line, "Frames %d", &numFrames); err != nil {
		return nil, 0, "", fmt.Errorf("lattice: parsing Frames: %w", err)
	}

	line, ok = readLine()
	if !ok {
		return nil, 0, "", fmt.Errorf("lattice: missing UtteranceID")
	}
	utteranceID = strings.TrimSpace(strings.TrimPrefix(line, "UtteranceID"))

	line, ok = readLine()
	if !ok {
		return nil, 0, "", fmt.Errorf("lattice: missing Nodes header")
	}
	var numNodes int
	if _, err := fmt.Sscanf(line, "Nodes %d:", &numNodes); err != nil {
		return nil, 0, "", fmt.Errorf("lattice: parsing Nodes header: %w", err)
	}

	g.Nodes = make([]Node, numNodes)
	for i := 0; i < numNodes; i++ {
		line, ok = readLine()
		if !ok {
			return nil, 0, "", fmt.Errorf("lattice: truncated node table at %d", i)
		}
		var id int
		var word int32
		var sf, fef, lef int
		if _, err := fmt.Sscanf(line, "%d %d %d %d %d", &id, &word, &sf, &fef, &lef); err != nil {
			return nil, 0, "", fmt.Errorf("lattice: parsing node %d: %w", i, err)
		}
		g.Nodes[id] = Node{Word: model.WordID(word), StartFrame: sf, EarliestEnd: fef, LatestEnd: lef}
	}

	line, ok = readLine()
	if !ok {
		return nil, 0, "", fmt.Errorf("lattice: missing Initial")
	}
	var initial int
	if _, err := fmt.Sscanf(line, "Initial %d", &initial); err != nil {
		return nil, 0, "", fmt.Errorf("lattice: parsing Initial: %w", err)
	}
	g.Initial = NodeID(initial)

	line, ok = readLine()
	if !ok {
		return nil, 0, "", fmt.Errorf("lattice: missing Final")
	}
	var final int
	if _, err := fmt.Sscanf(line, "Final %d", &final); err != nil {
		return nil, 0, "", fmt.Errorf("lattice: parsing Final: %w", err)
	}
	g.Final = NodeID(final)

	line, ok = readLine()
	if !ok || line != "Edges:" {
		return nil, 0, "", fmt.Errorf("lattice: expected Edges: header")
	}

	for {
		line, ok = readLine()
		if !ok {
			return nil, 0, "", fmt.Errorf("lattice: missing End")
		}
		if line == "End" {
			break
		}
		var from, to int
		var ascr float64
		var ef int
		if _, err := fmt.Sscanf(line, "%d %d %g %d", &from, &to, &ascr, &ef); err != nil {
			return nil, 0, "", fmt.Errorf("lattice: parsing edge: %w", err)
		}
		g.addLink(Link{From: NodeID(from), To: NodeID(to), Acoustic: ascr, EndFrame: ef})
	}

	if err := sc.Err(); err != nil {
		return nil, 0, "", err
	}
	return g, numFrames, utteranceID, nil
}
