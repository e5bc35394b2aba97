// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

// subBinSizes is the sparse per-(input chunk, output bin) contribution
// structure: per chunk, an offset into a shared CSR-style count array plus
// the chunk's candidate output-bin window. Nothing here ever materializes a
// dense [input bin x output bin] matrix; a chunk whose rows land in a narrow
// band of output bins (the sorted-coordinate rebin case) pays only for that
// band. Created fresh per bin call and consumed immediately.
type subBinSizes struct {
	lo, hi     []int64 // per-chunk candidate output-bin window [lo,hi)
	csrOff     []int64 // per-chunk start into csr; exclusive cumsum of hi-lo
	csr        []int64 // per-chunk per-output-bin counts, then write bases
	outSizes   []int64 // rows per output bin
	outOffsets []int64 // exclusive cumsum of outSizes
	total      int64
}

// newSubBinSizes scans per-row targets to size every output bin and to
// compute, per input chunk, the base write offset into every output bin it
// touches. After it returns, csr holds write bases: chunk c's rows
// targeting output bin b start at csr[csrOff[c]+(b-lo[c])], and chunks write
// disjoint regions in input-chunk order (stable scatter).
func newSubBinSizes(chunkSpans [][]IndexPair, targets []int64, totalBins, workers int) *subBinSizes {
	n := len(chunkSpans)
	s := &subBinSizes{
		lo:       make([]int64, n),
		hi:       make([]int64, n),
		csrOff:   make([]int64, n+1),
		outSizes: make([]int64, totalBins),
	}

	// Pass 1: per-chunk target windows.
	_ = parallelFor(workers, n, func(c int) error {
		lo, hi := int64(totalBins), int64(0)
		for _, span := range chunkSpans[c] {
			for row := span.Begin; row < span.End; row++ {
				t := targets[row]
				if t < 0 {
					continue
				}
				if t < lo {
					lo = t
				}
				if t >= hi {
					hi = t + 1
				}
			}
		}
		if hi <= lo {
			lo, hi = 0, 0
		}
		s.lo[c], s.hi[c] = lo, hi
		return nil
	})

	var csrLen int64
	for c := 0; c < n; c++ {
		s.csrOff[c] = csrLen
		csrLen += s.hi[c] - s.lo[c]
	}
	s.csrOff[n] = csrLen
	s.csr = make([]int64, csrLen)

	// Pass 2: per-chunk per-output-bin counts. Chunks own disjoint csr
	// windows, so this parallelizes without coordination.
	_ = parallelFor(workers, n, func(c int) error {
		window := s.csr[s.csrOff[c]:s.csrOff[c+1]]
		lo := s.lo[c]
		for _, span := range chunkSpans[c] {
			for row := span.Begin; row < span.End; row++ {
				if t := targets[row]; t >= 0 {
					window[t-lo]++
				}
			}
		}
		return nil
	})

	// Sequential reduce: output bin sizes.
	for c := 0; c < n; c++ {
		window := s.csr[s.csrOff[c]:s.csrOff[c+1]]
		for k, cnt := range window {
			s.outSizes[s.lo[c]+int64(k)] += cnt
		}
	}

	s.outOffsets, s.total = exclusiveCumsum(s.outSizes)

	// Sequential transform: counts -> write bases, walking chunks in input
	// order so earlier chunks claim earlier rows of each output bin.
	cursors := append([]int64(nil), s.outOffsets...)
	for c := 0; c < n; c++ {
		window := s.csr[s.csrOff[c]:s.csrOff[c+1]]
		for k, cnt := range window {
			b := s.lo[c] + int64(k)
			window[k] = cursors[b]
			cursors[b] += cnt
		}
	}
	return s
}

// exclusiveCumsum returns the running exclusive sum of sizes and the grand
// total (0 for empty input).
func exclusiveCumsum(sizes []int64) ([]int64, int64) {
	out := make([]int64, len(sizes))
	var sum int64
	for i, n := range sizes {
		out[i] = sum
		sum += n
	}
	return out, sum
}
