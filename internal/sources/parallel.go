package sources

import (
	"fmt"
	"time"
)

const searchDeadline = 45 * time.Second

type searchBatch struct {
	source  string
	results []Result
	failed  bool
}

type searchFns struct {
	nxs         func(name string) []Result
	flakeInputs func(name, lockPath string) []Result
	nur         func(name string) []Result
}

type parallelOptions struct {
	warn    func(message string)
	timeout time.Duration
}

// ParallelSearch launches one detached worker per enabled primary source
// (nxs always; flake inputs when a lock path is known; NUR when requested)
// and collects whatever arrives before the wall-clock deadline. Workers
// are never joined: a slow source costs at most its own subprocess, and
// its late output is dropped.
func ParallelSearch(name string, prefs *Preferences, flakeLockPath string, warn func(string)) []Result {
	return parallelSearchWith(name, prefs, flakeLockPath,
		parallelOptions{warn: warn, timeout: searchDeadline},
		searchFns{
			nxs:         func(n string) []Result { return SearchNxs(n, prefs.BleedingEdge) },
			flakeInputs: SearchFlakeInputs,
			nur:         SearchNur,
		})
}

func parallelSearchWith(name string, prefs *Preferences, flakeLockPath string, options parallelOptions, fns searchFns) []Result {
	// Buffered so detached workers can always deliver and exit.
	resultCh := make(chan searchBatch, 3)
	expected := 0

	spawn := func(source string, search func() []Result) {
		expected++
		go func() {
			defer func() {
				if recover() != nil {
					resultCh <- searchBatch{source: source, failed: true}
				}
			}()
			resultCh <- searchBatch{source: source, results: search()}
		}()
	}

	spawn("nxs", func() []Result { return fns.nxs(name) })
	if flakeLockPath != "" {
		spawn("flake-input", func() []Result { return fns.flakeInputs(name, flakeLockPath) })
	}
	if prefs.NUR || prefs.BleedingEdge {
		spawn("nur", func() []Result { return fns.nur(name) })
	}

	deadline := time.After(options.timeout)
	var all []Result
	for received := 0; received < expected; received++ {
		select {
		case batch := <-resultCh:
			if batch.failed {
				if options.warn != nil {
					options.warn(fmt.Sprintf("%s search failed for '%s'; using partial results", batch.source, name))
				}
				continue
			}
			all = append(all, batch.results...)
		case <-deadline:
			if options.warn != nil {
				options.warn(fmt.Sprintf("timed out waiting for one or more search sources for '%s'; using partial results", name))
			}
			return all
		}
	}
	return all
}
