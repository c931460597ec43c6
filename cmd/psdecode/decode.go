package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/latticestore"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

// decodeFlags holds the "decode" subcommand's own flags (input file, n-best
// count, lattice output, persistence). They sit alongside the shared
// --config file and do not override any of its fields.
type decodeFlags struct {
	input       string
	nbest       int
	latticeOut  string
	persistDSN  string
	sessionName string
}

func newDecodeCommand(root *rootFlags) *cobra.Command {
	flags := &decodeFlags{}

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode one raw 16-bit PCM file and print the hypothesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd.Context(), root, flags)
		},
	}
	cmd.Flags().StringVar(&flags.input, "input", "", "path to a raw 16-bit PCM audio file (required)")
	cmd.Flags().IntVar(&flags.nbest, "nbest", 0, "print this many hypotheses instead of just the best (spec.md §8 scenario 6)")
	cmd.Flags().StringVar(&flags.latticeOut, "write-lattice", "", "write the utterance lattice in spec.md §6's text format to this path")
	cmd.Flags().StringVar(&flags.persistDSN, "lattice-store-dsn", "", "PostgreSQL DSN to persist the lattice/hypothesis to, via internal/latticestore (optional)")
	cmd.Flags().StringVar(&flags.sessionName, "session", "psdecode-cli", "session id recorded alongside a persisted lattice")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runDecode(ctx context.Context, root *rootFlags, flags *decodeFlags) error {
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return err
	}

	dec, err := buildDecoder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("psdecode: build decoder: %w", err)
	}
	defer dec.Close()

	samples, err := readPCM16(flags.input)
	if err != nil {
		return err
	}

	if err := dec.StartUtt(); err != nil {
		return fmt.Errorf("psdecode: start utterance: %w", err)
	}
	if len(samples) > 0 {
		if _, err := dec.ProcessRaw(samples); err != nil {
			return fmt.Errorf("psdecode: process audio: %w", err)
		}
	}
	if err := dec.EndUtt(); err != nil {
		return fmt.Errorf("psdecode: end utterance: %w", err)
	}

	text, score := dec.Hyp()
	fmt.Printf("hyp: %s\nscore: %g\n", text, score)

	if flags.nbest > 0 {
		hyps, err := dec.NBest(flags.nbest)
		if err != nil {
			logger.Warn("psdecode: n-best unavailable", "err", err)
		}
		for i, h := range hyps {
			fmt.Printf("nbest[%d]: %s (score %g)\n", i, dec.Text(h.Words), h.Score)
		}
	}

	graph, latErr := dec.Lattice()
	if latErr == nil {
		if flags.latticeOut != "" {
			if err := writeLatticeGraph(flags.latticeOut, graph, flags.input); err != nil {
				return err
			}
		}
		if flags.persistDSN != "" {
			store, err := latticestore.NewPostgresStore(ctx, flags.persistDSN)
			if err != nil {
				return fmt.Errorf("psdecode: connect lattice store: %w", err)
			}
			defer store.Close()
			if err := store.Put(ctx, flags.sessionName, flags.input, graph, 0, text, score); err != nil {
				return fmt.Errorf("psdecode: persist lattice: %w", err)
			}
		}
	} else {
		logger.Info("psdecode: no lattice produced for this utterance", "err", latErr)
	}

	return nil
}

// writeLatticeGraph writes g in spec.md §6's lattice text format to path.
func writeLatticeGraph(path string, g *lattice.Graph, utteranceID string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("psdecode: create %q: %w", path, err)
	}
	defer f.Close()
	if err := lattice.WriteText(f, g, 0, utteranceID); err != nil {
		return fmt.Errorf("psdecode: write lattice %q: %w", path, err)
	}
	return nil
}

// readPCM16 reads a file of little-endian 16-bit PCM samples in full. A
// trailing odd byte, if any, is dropped, matching wsserver/mcptool's
// decodePCM16 helpers.
func readPCM16(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("psdecode: open %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("psdecode: read %q: %w", path, err)
	}
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples, nil
}
