// Package bp implements the backpointer table of spec.md §4.4/§9: the one
// shared, append-only data structure every search pass reads and writes,
// and which becomes the word lattice at utterance end.
//
// spec.md §9 calls this out explicitly: "the backpointer table [is] kept
// [as an] append-only vector" rather than a linked list of heap-allocated
// nodes, so a whole utterance's search history lives in one contiguous
// slice with O(1) random access by index.
package bp

import "github.com/cmusphinx/pocketsphinx-sub004/internal/model"

// Index identifies one entry in a [Table]. NoPredecessor marks the root of
// a predecessor chain (spec.md §4.4: "<s> appears once at frame 0 with no
// predecessor").
type Index int32

const NoPredecessor Index = -1

// Entry is one backpointer: a word exit at a frame, with its predecessor
// and acoustic+language score. RightContextScores holds the per-right-
// -context-phone "score stack" spec.md §4.4 step 6 describes for leaf word
// exits whose true right context depends on the next word.
type Entry struct {
	Frame       int
	Word        model.WordID
	Predecessor Index
	Score       float64 // cumulative path score (acoustic + LM + penalties)
	StartFrame  int     // first frame of this word's span

	RightContextScores map[model.CIPhoneID]float64
}

// Table is the append-only backpointer vector. Entries are appended in
// frame order; within one frame their relative order is unspecified per
// spec.md §4.4, but FirstOfFrame lets callers recover per-frame slices.
type Table struct {
	entries        []Entry
	firstOfFrame   []Index // firstOfFrame[f] = index of first entry with Frame==f
	currentFrame   int
}

// New returns an empty table.
func New() *Table {
	return &Table{firstOfFrame: []Index{0}}
}

// Reset clears the table for a new utterance (spec.md §5 "arenas use
// bump/reset allocation").
func (t *Table) Reset() {
	t.entries = t.entries[:0]
	t.firstOfFrame = t.firstOfFrame[:0]
	t.firstOfFrame = append(t.firstOfFrame, 0)
	t.currentFrame = 0
}

// Append adds a new entry, enforcing "predecessor_bp strictly precedes the
// current entry" (spec.md §4.4). Frame must be >= the frame of all
// previously appended entries.
func (t *Table) Append(e Entry) Index {
	if e.Predecessor != NoPredecessor && int(e.Predecessor) >= len(t.entries) {
		panic("bp: predecessor does not strictly precede new entry")
	}
	for e.Frame > t.currentFrame {
		t.currentFrame++
		t.firstOfFrame = append(t.firstOfFrame, Index(len(t.entries)))
	}
	idx := Index(len(t.entries))
	t.entries = append(t.entries, e)
	return idx
}

// Get returns the entry at idx.
func (t *Table) Get(idx Index) Entry {
	return t.entries[idx]
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// FirstOfFrame returns the index of the first entry appended at frame. For a
// frame with no entries before the last frame seen, that is the index of the
// next entry appended after it; for a frame beyond the last frame seen it is
// Len().
func (t *Table) FirstOfFrame(frame int) Index {
	if frame < 0 {
		return 0
	}
	if frame >= len(t.firstOfFrame) {
		return Index(len(t.entries))
	}
	return t.firstOfFrame[frame]
}

// FrameRange iterates entries belonging to frame, calling fn with each
// entry's index.
func (t *Table) FrameRange(frame int, fn func(Index, Entry)) {
	start := t.FirstOfFrame(frame)
	end := t.FirstOfFrame(frame + 1)
	for i := start; i < end; i++ {
		fn(i, t.entries[i])
	}
}

// BestEndWordEntry finds the best-scoring backpointer naming endWord (e.g.
// </s>), or ok=false if none exists (spec.md §4.4 "Hypothesis extraction").
func (t *Table) BestEndWordEntry(endWord model.WordID) (Index, bool) {
	best := NoPredecessor
	bestScore := negInf
	for i, e := range t.entries {
		if e.Word == endWord && e.Score > bestScore {
			best = Index(i)
			bestScore = e.Score
		}
	}
	return best, best != NoPredecessor
}

// BestOfLastFrame returns the best-scoring entry of the table's last frame,
// the fallback hypothesis-extraction path when no end-word entry exists.
func (t *Table) BestOfLastFrame() (Index, bool) {
	if len(t.entries) == 0 {
		return NoPredecessor, false
	}
	best := NoPredecessor
	bestScore := negInf
	t.FrameRange(t.currentFrame, func(idx Index, e Entry) {
		if e.Score > bestScore {
			best = idx
			bestScore = e.Score
		}
	})
	return best, best != NoPredecessor
}

// Chain walks the predecessor chain from idx back to NoPredecessor and
// returns entries in chronological (oldest-first) order — the hypothesis
// word sequence (spec.md §4.4 "walk the predecessor chain to <s> and
// reverse").
func (t *Table) Chain(idx Index) []Entry {
	var rev []Entry
	for idx != NoPredecessor {
		e := t.entries[idx]
		rev = append(rev, e)
		idx = e.Predecessor
	}
	out := make([]Entry, len(rev))
	for i, e := range rev {
		out[len(rev)-1-i] = e
	}
	return out
}

const negInf = -1e300
