package ytdlp

import (
	"regexp"
	"strconv"

	"github.com/ytget/ytgram/internal/progress"
)

// Progress lines look like:
//
//	[download]  45.2% of 10.50MiB at 2.30MiB/s ETA 00:03
//
// The final filename arrives on a Destination line, or a Merger line when the
// tool muxed streams itself. Absence of either is normal; callers fall back
// to extension probing.
var (
	progressRe = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%`)
	sizeRe     = regexp.MustCompile(`of\s+~?\s*([\d.]+\s?(?:Ki|Mi|Gi)B)`)
	speedRe    = regexp.MustCompile(`at\s+([\d.]+\s?(?:Ki|Mi|Gi)B/s)`)
	etaRe      = regexp.MustCompile(`ETA\s+(\d+:\d+)`)
	destRe     = regexp.MustCompile(`\[download\] Destination: (.+)`)
	mergerRe   = regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"`)
)

// ParseProgressLine extracts a progress sample from one output line.
func ParseProgressLine(line string) (progress.Sample, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return progress.Sample{}, false
	}

	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return progress.Sample{}, false
	}

	sample := progress.Sample{Percent: int(pct)}
	if m := sizeRe.FindStringSubmatch(line); m != nil {
		sample.Size = m[1]
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		sample.Rate = m[1]
	}
	if m := etaRe.FindStringSubmatch(line); m != nil {
		sample.ETA = m[1]
	}
	return sample, true
}

// ParseFinalName extracts the output filename from a Destination or Merger
// line. Merger lines win because they name the muxed result.
func ParseFinalName(line string) (name string, merged bool, ok bool) {
	if m := mergerRe.FindStringSubmatch(line); m != nil {
		return m[1], true, true
	}
	if m := destRe.FindStringSubmatch(line); m != nil {
		return m[1], false, true
	}
	return "", false, false
}
