package acmodel

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

// dumpScale converts a natural-log score into the int16-quantized units of
// the on-disk dump format (spec.md §6 "feature-stream dump format").
const dumpScale = 256.0

// DumpWriter records one frame's sparse senone scores per spec.md §6:
// "int32 n_active; repeated n_active times (int16 senone_id, int16
// score)", host byte order, EOF marking end of utterance.
type DumpWriter struct {
	w io.Writer
}

// NewDumpWriter wraps w for frame-by-frame dumping.
func NewDumpWriter(w io.Writer) *DumpWriter {
	return &DumpWriter{w: w}
}

// WriteFrame writes scores restricted to active (or all senones if active is
// nil).
func (d *DumpWriter) WriteFrame(scores []float64, active *ActiveSet) error {
	var ids []int32
	if active == nil {
		ids = make([]int32, len(scores))
		for i := range ids {
			ids[i] = int32(i)
		}
	} else {
		for sn := range scores {
			if active.marked[sn] == active.stamp {
				ids = append(ids, int32(sn))
			}
		}
	}

	if err := binary.Write(d.w, binary.NativeEndian, int32(len(ids))); err != nil {
		return fmt.Errorf("acmodel: write n_active: %w", err)
	}
	for _, id := range ids {
		q := int16(scores[id] * dumpScale)
		if err := binary.Write(d.w, binary.NativeEndian, int16(id)); err != nil {
			return fmt.Errorf("acmodel: write senone id: %w", err)
		}
		if err := binary.Write(d.w, binary.NativeEndian, q); err != nil {
			return fmt.Errorf("acmodel: write score: %w", err)
		}
	}
	return nil
}

// DumpReader replays a dump produced by [DumpWriter], bypassing FE+AM
// entirely (spec.md §4.2 "re-read via an input stream that bypasses
// FE+AM").
type DumpReader struct {
	r io.Reader
}

// NewDumpReader wraps r for frame-by-frame replay.
func NewDumpReader(r io.Reader) *DumpReader {
	return &DumpReader{r: r}
}

// ScoredSenone is one (senone, score) pair read back from a dump.
type ScoredSenone struct {
	Senone model.SenoneID
	Score  float64
}

// ReadFrame reads the next frame's sparse scores, or io.EOF at the end of
// the utterance.
func (d *DumpReader) ReadFrame() ([]ScoredSenone, error) {
	var n int32
	if err := binary.Read(d.r, binary.NativeEndian, &n); err != nil {
		return nil, err
	}
	out := make([]ScoredSenone, n)
	for i := int32(0); i < n; i++ {
		var id, sc int16
		if err := binary.Read(d.r, binary.NativeEndian, &id); err != nil {
			return nil, fmt.Errorf("acmodel: read senone id: %w", err)
		}
		if err := binary.Read(d.r, binary.NativeEndian, &sc); err != nil {
			return nil, fmt.Errorf("acmodel: read score: %w", err)
		}
		out[i] = ScoredSenone{Senone: model.SenoneID(id), Score: float64(sc) / dumpScale}
	}
	return out, nil
}
