// gse-replay feeds a persisted NDJSON session back through the feature and
// engine packages at accelerated speed, so a captured session can be used
// as a regression fixture without a live keyboard. Two modes:
//
//	gse-replay <file.ndjson>   replay one file and exit
//	gse-replay -watch <dir>    replay every stable file dropped into dir
//
// Uses the same subcommand-dispatch shape as the gse daemon entrypoint,
// and internal/watcher's fsnotify-based directory watch for -watch mode.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gse/internal/engine"
	"gse/internal/feature"
	"gse/internal/logging"
	"gse/internal/schemavalidation"
	"gse/internal/watcher"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if os.Args[1] == "-watch" {
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		fs.Parse(os.Args[2:])
		if fs.NArg() < 1 {
			usage()
			os.Exit(1)
		}
		if err := watchDir(fs.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "gse-replay: %v\n", err)
			os.Exit(1)
		}
		return
	}

	summary, err := replayFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "gse-replay: %v\n", err)
		os.Exit(1)
	}
	printSummary(os.Args[1], summary)
}

func usage() {
	fmt.Println(`gse-replay - replay a persisted NDJSON session through the state engine

USAGE:
    gse-replay <session.ndjson>
    gse-replay -watch <directory>`)
}

// replaySummary reports the final belief and the number of ticks it took
// to get there.
type replaySummary struct {
	Ticks int
	Final engine.Belief
}

// replayFile reads one NDJSON session and drives a fresh Estimator with
// every feat record it contains, in file order. ime_state records are
// schema-checked and set imeOpen; key and meta records are schema-checked
// and skipped.
//
// The persisted feat record only carries the six-dimensional vector and
// the resulting belief, not the imeOpen/imeActive/penaltyRun flags the live
// Supervisor had when it computed them -- those aren't part of the NDJSON
// schema. Replay therefore sets penaltyRun when F3 (the window's delete
// fraction) is at least 0.8, the closest signal available after the
// fact, and tracks imeOpen from the most recent
// ime_state record; imeActive has no persisted signal at all, so replay
// always passes false and never freezes the estimator the way a live
// candidate window would. This is an approximation of the live inputs, not
// a bit-exact replay of them; only the belief trajectory this produces is
// meant to be regression-compared, not the original run's exact numbers.
func replayFile(path string) (replaySummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return replaySummary{}, fmt.Errorf("open session: %w", err)
	}
	defer f.Close()

	estimator := engine.NewHMMEstimator()
	imeOpen := false
	ticks := 0
	var final engine.Belief

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := schemavalidation.ValidateSessionRecord(line); err != nil {
			return replaySummary{}, fmt.Errorf("invalid record: %w", err)
		}

		var rec logging.SessionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return replaySummary{}, fmt.Errorf("decode record: %w", err)
		}

		switch rec.Type {
		case "ime_state":
			imeOpen = rec.On
		case "feat":
			v := feature.Vector{F1: rec.F1, F2: rec.F2, F3: rec.F3, F4: rec.F4, F5: rec.F5, F6: rec.F6}
			penaltyRun := rec.F3 >= 0.8
			final = estimator.Update(v, imeOpen, false, penaltyRun)
			ticks++
		}
	}
	if err := scanner.Err(); err != nil {
		return replaySummary{}, fmt.Errorf("scan session: %w", err)
	}

	return replaySummary{Ticks: ticks, Final: final}, nil
}

func printSummary(path string, s replaySummary) {
	fmt.Printf("%s: %d ticks, final belief flow=%.3f inc=%.3f stuck=%.3f\n",
		path, s.Ticks, s.Final.PFlow, s.Final.PInc, s.Final.PStuck)
}

func watchDir(dir string) error {
	w, err := watcher.New(dir, 2)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Printf("watching %s for stable session files (Ctrl+C to stop)\n", w.Dir())
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			summary, err := replayFile(ev.Path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "gse-replay: %s: %v\n", ev.Path, err)
				continue
			}
			printSummary(ev.Path, summary)
		case err, ok := <-w.Errors():
			if !ok {
				continue
			}
			fmt.Fprintf(os.Stderr, "gse-replay: watcher error: %v\n", err)
		}
	}
}
