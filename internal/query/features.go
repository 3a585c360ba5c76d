// package query translates free-text playlist requests into structured
// audio-feature predicates and a ranked SQL query over the persisted schema.
//
// The extractor is keyword-based: each query feature has positive and
// negative vocabularies, and "not"/"very"-style modifiers flip or strengthen
// the running weight. Output per feature is only a direction in {-1, 0, +1}.
package query

import (
	"strings"
)

// QueryFeatures are the audio features addressable from free text. They are
// the subset of the thirteen stored features with meaningful vocabulary;
// structural features (key, mode, time_signature, duration_ms) are not.
var QueryFeatures = []string{
	"acousticness",
	"danceability",
	"energy",
	"instrumentalness",
	"liveness",
	"loudness",
	"speechiness",
	"tempo",
	"valence",
}

// Filter is the structured form of a free-text request.
type Filter struct {
	Features map[string]int `json:"features"` // feature -> -1, 0, +1
	Artists  []string       `json:"artists"`
	Genres   []string       `json:"genres"`
}

// Empty reports whether the filter carries no usable predicate.
func (f Filter) Empty() bool {
	for _, dir := range f.Features {
		if dir != 0 {
			return false
		}
	}
	return len(f.Artists) == 0 && len(f.Genres) == 0
}

var positiveKeywords = map[string][]string{
	"acousticness":     {"acoustic", "musical", "choral", "classical", "classic", "folk", "harmonic", "resonant", "rustic", "unplugged", "chamber"},
	"danceability":     {"groovy", "funky", "funk", "catchy", "dance", "danceable", "hummable", "tuneful", "rhythmic", "bouncy"},
	"energy":           {"energetic", "exciting", "exhilarating", "motivational", "powerful", "spirited", "speedy", "active", "brisk", "peppy", "fast", "exercise", "workout", "pump", "pumped", "party", "lively", "dynamic", "intense", "hype"},
	"instrumentalness": {"instrumental", "orchestral", "ambient", "wordless"},
	"liveness":         {"live", "concert", "upbeat", "crowd"},
	"loudness":         {"loud", "booming", "noisy", "clamorous", "dramatic", "hard", "thunderous"},
	"speechiness":      {"poetic", "lyrical", "spoken", "verbal", "rap", "wordy", "talky"},
	"tempo":            {"fast", "uptempo", "racing", "hyper", "quick"},
	"valence":          {"happy", "uplifting", "cheerful", "warm", "romantic", "joyful", "sunny", "glad", "good", "beautiful", "beach", "paradise", "feel-good", "positive"},
}

var negativeKeywords = map[string][]string{
	"acousticness":     {"electric", "electronic", "synthetic", "computerized", "chiptune"},
	"danceability":     {"irregular", "strange", "freeform"},
	"energy":           {"slow", "sleepy", "tired", "rest", "restful", "lullaby", "relaxing", "calm", "chill", "mellow", "rainy", "rain"},
	"instrumentalness": {"vocal", "singing", "sing", "choral", "choir", "spoken"},
	"liveness":         {"studio", "polished"},
	"loudness":         {"quiet", "soft", "gentle", "faint", "smooth", "hushed", "study", "sneaky"},
	"tempo":            {"slow", "slowed", "downtempo", "mellow", "soothing", "chill", "calm"},
	"speechiness":      {"instrumental", "wordless"},
	"valence":          {"sad", "somber", "melancholy", "mournful", "depressing", "moody", "blue", "dark", "gloomy"},
}

var increaseWords = map[string]struct{}{
	"very": {}, "extremely": {}, "really": {}, "super": {}, "so": {},
}

var reverseWords = map[string]struct{}{
	"not": {}, "no": {}, "never": {},
}

// Extractor maps free text onto a [Filter] using keyword vocabularies plus
// artist and genre name lists sourced from the store.
type Extractor struct {
	artistNames []string
	genreNames  []string
	positive    map[string]map[string]struct{}
	negative    map[string]map[string]struct{}
}

// NewExtractor creates an Extractor. artistNames and genreNames come from
// storage and are matched case-insensitively as whole words.
func NewExtractor(artistNames, genreNames []string) *Extractor {
	toSet := func(src map[string][]string) map[string]map[string]struct{} {
		out := make(map[string]map[string]struct{}, len(src))
		for feature, words := range src {
			set := make(map[string]struct{}, len(words))
			for _, w := range words {
				set[w] = struct{}{}
			}
			out[feature] = set
		}
		return out
	}

	return &Extractor{
		artistNames: artistNames,
		genreNames:  genreNames,
		positive:    toSet(positiveKeywords),
		negative:    toSet(negativeKeywords),
	}
}

// Extract parses input into a Filter. Artist mentions are consumed from the
// text before keyword scanning so band names don't pollute feature weights
// ("Talking Heads" should not read as speechiness).
func (e *Extractor) Extract(input string) Filter {
	filter := Filter{Features: make(map[string]int, len(QueryFeatures))}
	for _, feature := range QueryFeatures {
		filter.Features[feature] = 0
	}

	remaining := input
	for _, artist := range e.artistNames {
		if cut, ok := cutWholeWord(remaining, artist); ok {
			filter.Artists = append(filter.Artists, artist)
			remaining = cut
		}
	}
	for _, genre := range e.genreNames {
		if _, ok := cutWholeWord(remaining, genre); ok {
			filter.Genres = append(filter.Genres, genre)
		}
	}

	weights := make(map[string]int, len(QueryFeatures))
	mult := 1
	for _, token := range tokenize(remaining) {
		matched := false
		for _, feature := range QueryFeatures {
			if _, ok := e.positive[feature][token]; ok {
				weights[feature] += mult
				matched = true
			}
			if _, ok := e.negative[feature][token]; ok {
				weights[feature] -= mult
				matched = true
			}
		}

		if matched {
			mult = 1
			continue
		}
		if _, ok := reverseWords[token]; ok {
			mult = -mult
			continue
		}
		if _, ok := increaseWords[token]; ok {
			// modifiers stack onto the next matched keyword
			continue
		}
		mult = 1
	}

	// only the direction survives; magnitude is an artifact of keyword count
	for feature, w := range weights {
		switch {
		case w > 0:
			filter.Features[feature] = 1
		case w < 0:
			filter.Features[feature] = -1
		}
	}

	return filter
}

// cutWholeWord removes the first case-insensitive whole-word occurrence of
// phrase from s, reporting whether it was found.
func cutWholeWord(s, phrase string) (string, bool) {
	lower := strings.ToLower(s)
	needle := strings.ToLower(phrase)

	from := 0
	for {
		idx := strings.Index(lower[from:], needle)
		if idx < 0 {
			return s, false
		}
		idx += from

		startOK := idx == 0 || !isLetter(lower[idx-1])
		endIdx := idx + len(needle)
		endOK := endIdx == len(lower) || !isLetter(lower[endIdx])
		if startOK && endOK {
			return s[:idx] + s[endIdx:], true
		}
		from = idx + 1
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// tokenize lowercases and splits on non-letter boundaries.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && r != '-'
	})
}
