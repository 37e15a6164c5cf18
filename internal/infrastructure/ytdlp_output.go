package infrastructure

import (
	"regexp"
	"strconv"
	"strings"
)

// yt-dlp progress lines look like:
//   [download]  45.2% of 10.55MiB at 1.21MiB/s ETA 00:05
//   [download] 100% of 10.55MiB in 00:09
// Destination lines name the file being written:
//   [download] Destination: /path/to/file.mp4
//   [Merger] Merging formats into "/path/to/file.mp4"
//   [ExtractAudio] Destination: /path/to/file.mp3

var (
	progressRe     = regexp.MustCompile(`\[download\]\s+([\d.]+)%\s+of\s+~?\s*([\d.]+)([KMGT]i?B)`)
	destinationRe  = regexp.MustCompile(`\[download\]\s+Destination:\s+(.+)`)
	mergerRe       = regexp.MustCompile(`\[Merger\]\s+Merging formats into\s+"(.+)"`)
	extractAudioRe = regexp.MustCompile(`\[ExtractAudio\]\s+Destination:\s+(.+)`)
	alreadyRe      = regexp.MustCompile(`\[download\]\s+(.+)\s+has already been downloaded`)
)

var sizeUnits = map[string]float64{
	"B":   1,
	"KB":  1e3,
	"KIB": 1 << 10,
	"MB":  1e6,
	"MIB": 1 << 20,
	"GB":  1e9,
	"GIB": 1 << 30,
	"TB":  1e12,
	"TIB": 1 << 40,
}

// progressUpdate is one parsed progress report
type progressUpdate struct {
	Percent    float64
	TotalBytes int64
}

// parseProgressLine extracts percent and total size from a progress
// line. Returns false for anything else.
func parseProgressLine(line string) (progressUpdate, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return progressUpdate{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return progressUpdate{}, false
	}
	size, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return progressUpdate{}, false
	}
	unit, ok := sizeUnits[strings.ToUpper(m[3])]
	if !ok {
		return progressUpdate{}, false
	}

	return progressUpdate{
		Percent:    percent,
		TotalBytes: int64(size * unit),
	}, true
}

// parseDestinationLine extracts the output path a yt-dlp line names.
// Merger and ExtractAudio destinations supersede plain download
// destinations, so the second return reports whether this is a final
// (post-processed) path.
func parseDestinationLine(line string) (path string, final bool, ok bool) {
	if m := mergerRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true, true
	}
	if m := extractAudioRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true, true
	}
	if m := destinationRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), false, true
	}
	if m := alreadyRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), false, true
	}
	return "", false, false
}

// destinationTracker folds destination lines into the single final
// output path of a run.
type destinationTracker struct {
	last  string
	final string
}

func (dt *destinationTracker) observe(line string) {
	path, final, ok := parseDestinationLine(line)
	if !ok {
		return
	}
	if final {
		dt.final = path
		return
	}
	dt.last = path
}

// Path returns the best-known output path, favoring post-processed
// destinations over intermediate stream files.
func (dt *destinationTracker) Path() string {
	if dt.final != "" {
		return dt.final
	}
	return dt.last
}
