// Command m4hls-dump prints the moov structure, sample counts, and
// keyframe/segment-boundary statistics for an MP4 file, for debugging a
// source the server fails to remux cleanly.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/bmff"
	"github.com/snapetech/m4hls/moov"
	"github.com/snapetech/m4hls/sample"
)

func main() {
	seconds := flag.Int("seconds", 10, "segment target duration in seconds")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: m4hls-dump [-seconds N] <file.mp4>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *seconds); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(path string, targetSeconds int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var moovData []byte
	sc := bmff.NewScanner(f)
	for sc.Next() {
		e := sc.Entry()
		fmt.Printf("box %-4s offset=%-10d size=%d\n", e.Type.String(), e.Offset, e.Size)
		if e.Type == bmff.TypeMoov {
			moovData = make([]byte, e.DataSize())
			if err := sc.ReadBody(moovData); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if moovData == nil {
		return fmt.Errorf("no moov box found")
	}

	movie, err := moov.NewParser(zerolog.Nop()).Parse(moovData)
	if err != nil {
		return err
	}

	fmt.Printf("\nmovie timescale=%d duration=%d tracks=%d\n", movie.TimeScale, movie.Duration, len(movie.Tracks))

	builder := sample.NewBuilder(zerolog.Nop())
	for _, t := range movie.Tracks {
		codec := "none"
		if len(t.SampleDescriptions) > 0 {
			codec = t.SampleDescriptions[0].Codec
		}
		fmt.Printf("\ntrack id=%d kind=%s codec=%s timescale=%d duration=%d\n",
			t.ID, t.Kind, codec, t.TimeScale, t.Duration)

		target := 0
		if t.Kind == moov.KindVideo {
			target = targetSeconds
		}
		built, err := builder.Build(&t, target)
		if err != nil {
			fmt.Printf("  sample build failed: %v\n", err)
			continue
		}
		fmt.Printf("  samples=%d\n", len(built.Samples))

		if t.Kind == moov.KindVideo {
			printKeyframeStats(built)
			bounds := built.BoundaryIndices()
			fmt.Printf("  segment boundaries=%d (target=%ds)\n", len(bounds), targetSeconds)
		}
	}
	return nil
}

func printKeyframeStats(t *sample.Track) {
	var last uint64
	var have bool
	var minGap, maxGap uint64
	var sum uint64
	var n int
	for _, s := range t.Samples {
		if !s.IsSync {
			continue
		}
		if have {
			gap := s.DTS - last
			if n == 0 || gap < minGap {
				minGap = gap
			}
			if gap > maxGap {
				maxGap = gap
			}
			sum += gap
			n++
		}
		last = s.DTS
		have = true
	}
	if n == 0 {
		fmt.Println("  keyframes: fewer than 2, no interval stats")
		return
	}
	avg := float64(sum) / float64(n)
	scale := float64(t.TimeScale)
	fmt.Printf("  keyframe interval: min=%.2fs max=%.2fs avg=%.2fs\n", float64(minGap)/scale, float64(maxGap)/scale, avg/scale)
}
