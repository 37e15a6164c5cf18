package app

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/yourusername/tubequeue/internal/domain"
)

// imageExtensions and imageMarkers identify still-image URLs that the
// extraction service sometimes reports inside format lists. Thumbnails
// and storyboard sprites are extraction artifacts, not playable media.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

var imageMarkers = []string{"ytimg", "storyboard", "googleusercontent"}

// ResolvedFormat is one playable choice produced by the resolver. Expr
// is the request expression passed to the extraction service; for
// video-only descriptors it is a composite pairing with the best audio
// stream so the choice always yields sound.
type ResolvedFormat struct {
	Descriptor domain.FormatDescriptor `json:"descriptor"`
	Label      string                  `json:"label"`
	Expr       string                  `json:"expr"`
	Composite  bool                    `json:"composite"`
	score      int
}

// Resolution is the resolver output: choices ordered best first and
// the default the worker uses when no explicit quality was picked.
type Resolution struct {
	Choices []ResolvedFormat `json:"choices"`
	Default ResolvedFormat   `json:"default"`
}

// FormatResolver applies the format-selection policy to a descriptor
// list fetched for one resource.
type FormatResolver struct {
	preferredContainer string
}

// NewFormatResolver creates a resolver preferring the given container
// extension when scoring.
func NewFormatResolver(preferredContainer string) *FormatResolver {
	return &FormatResolver{preferredContainer: strings.ToLower(preferredContainer)}
}

// Resolve filters, scores, orders and de-duplicates the candidate
// formats. Returns domain.ErrNoPlayableFormat when nothing usable
// survives.
func (r *FormatResolver) Resolve(formats []domain.FormatDescriptor) (*Resolution, error) {
	usable := lo.Filter(formats, func(f domain.FormatDescriptor, _ int) bool {
		return f.URL != "" && !isImageURL(f.URL)
	})

	// fragmented manifests only serve as a fallback when nothing
	// simpler survived
	direct := lo.Filter(usable, func(f domain.FormatDescriptor, _ int) bool {
		return f.Transport != domain.TransportDASH
	})
	if len(direct) > 0 {
		usable = direct
	}

	if len(usable) == 0 {
		return nil, domain.ErrNoPlayableFormat
	}

	choices := lo.Map(usable, func(f domain.FormatDescriptor, _ int) ResolvedFormat {
		return ResolvedFormat{
			Descriptor: f,
			Label:      f.Label(),
			Expr:       r.exprFor(f),
			Composite:  f.HasVideo && !f.HasAudio,
			score:      r.score(f),
		}
	})

	sort.SliceStable(choices, func(i, j int) bool {
		a, b := choices[i], choices[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.Descriptor.Height != b.Descriptor.Height {
			return a.Descriptor.Height > b.Descriptor.Height
		}
		// combined audio+video beats video-only at equal score/height
		return !a.Composite && b.Composite
	})

	choices = lo.UniqBy(choices, func(c ResolvedFormat) string {
		return c.Label
	})

	return &Resolution{Choices: choices, Default: choices[0]}, nil
}

// score implements the selection policy: audio and video presence
// dominate, the preferred container breaks near-ties.
func (r *FormatResolver) score(f domain.FormatDescriptor) int {
	s := 0
	if f.HasVideo {
		s += 2
	}
	if f.HasAudio {
		s += 2
	}
	if strings.ToLower(f.Ext) == r.preferredContainer {
		s++
	}
	return s
}

// exprFor builds the service request expression. Video-only streams
// are paired with the best audio stream so they are never requested
// standalone.
func (r *FormatResolver) exprFor(f domain.FormatDescriptor) string {
	if f.HasVideo && !f.HasAudio {
		return f.ID + "+bestaudio"
	}
	return f.ID
}

// isImageURL reports whether a format URL points at a still-image
// asset rather than a media stream.
func isImageURL(rawURL string) bool {
	u := strings.ToLower(rawURL)
	path := u
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	for _, marker := range imageMarkers {
		if strings.Contains(u, marker) {
			return true
		}
	}
	return false
}
