package moderation

import (
	"context"
	"log/slog"
	"unicode"

	"channel-hub/errors"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// ProfanityFilter rejects content matching the configured blocklist. The
// match is case-insensitive, folds common leet-speak substitutions, ignores
// punctuation inside a word, and only fires on whole words: a blocked term
// embedded in a longer word does not match.
type ProfanityFilter struct {
	matcher *goahocorasick.Machine
	log     *slog.Logger
}

// wordSep is the sentinel that survives normalization wherever the original
// text had whitespace, so the automaton's hits can be checked against word
// boundaries.
const wordSep = ' '

func NewProfanityFilter(words []string, log *slog.Logger) (*ProfanityFilter, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalizeRunes([]rune(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &ProfanityFilter{matcher: m, log: log}, nil
}

func (f *ProfanityFilter) Name() string { return "profanity" }

func (f *ProfanityFilter) Check(_ context.Context, in Input) error {
	normalized := normalize(in.Content)
	if len(normalized) == 0 {
		return nil
	}

	spans := f.matcher.MultiPatternSearch(normalized, false)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if !wholeWord(normalized, start, end) {
			continue
		}

		// The detected language is logged for moderation analytics; it
		// does not influence the decision.
		info := whatlanggo.Detect(in.Content)
		f.log.Info("Blocked term detected",
			"author", in.AuthorID,
			"channel", in.ChannelID,
			"lang", info.Lang.Iso6391())
		return errors.ModerationRejected{Reason: errors.ReasonProfanity}
	}
	return nil
}

// wholeWord reports whether the span [start,end) is delimited by separators
// or stream edges in the normalized text.
func wholeWord(text []rune, start, end int) bool {
	if start > 0 && text[start-1] != wordSep {
		return false
	}
	if end < len(text) && text[end] != wordSep {
		return false
	}
	return true
}

// normalize lowers the text into its searchable form: leet speak folded,
// punctuation and symbols dropped, runs of whitespace collapsed into a
// single separator so word boundaries survive. Punctuation leet characters
// ("b!tch") only fold when wedged between word characters; at a word edge
// ("badger!") they are ordinary punctuation and drop out.
func normalize(input string) []rune {
	runes := []rune(input)
	out := make([]rune, 0, len(runes))
	pendingSep := false
	for i, r := range runes {
		if unicode.IsSpace(r) {
			pendingSep = true
			continue
		}
		clean := simplifyRune(r)
		if isNoise(r) && !insideWord(runes, i) {
			continue
		}
		if isNoise(clean) {
			continue
		}
		if pendingSep && len(out) > 0 {
			out = append(out, wordSep)
		}
		pendingSep = false
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// insideWord reports whether position i has a non-space neighbor on both
// sides.
func insideWord(runes []rune, i int) bool {
	if i == 0 || i == len(runes)-1 {
		return false
	}
	return !unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i+1])
}

// normalizeRunes applies the same folding to a blocklist pattern, which by
// construction contains no whitespace.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) || unicode.IsSpace(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during the pattern matching phase.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
