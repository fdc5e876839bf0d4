// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package intent

import (
	"regexp"
	"strings"

	"github.com/tomtom215/curatus/internal/models"
)

// genreRule maps a prompt pattern onto one or more canonical genre
// names. Rules are ordered; output order follows the table, so the
// extractor stays deterministic across runs.
type genreRule struct {
	re     *regexp.Regexp
	genres []string
}

// Canonical genre names follow the catalog metadata provider.
var genreRules = []genreRule{
	{regexp.MustCompile(`\brom[ -]?coms?\b`), []string{"Romance", "Comedy"}},
	{regexp.MustCompile(`\broman(?:ce|tic)\b`), []string{"Romance"}},
	{regexp.MustCompile(`\bcomed(?:y|ies)\b|\bfunny\b|\bsitcoms?\b`), []string{"Comedy"}},
	{regexp.MustCompile(`\baction\b`), []string{"Action"}},
	{regexp.MustCompile(`\badventures?\b`), []string{"Adventure"}},
	{regexp.MustCompile(`\banimat(?:ed|ion)\b|\banime\b`), []string{"Animation"}},
	{regexp.MustCompile(`\bcrime\b|\bheists?\b`), []string{"Crime"}},
	{regexp.MustCompile(`\bdocumentar(?:y|ies)\b`), []string{"Documentary"}},
	{regexp.MustCompile(`\bdramas?\b`), []string{"Drama"}},
	{regexp.MustCompile(`\bfamily\b`), []string{"Family"}},
	{regexp.MustCompile(`\bfantasy\b`), []string{"Fantasy"}},
	{regexp.MustCompile(`\bhistor(?:y|ical)\b`), []string{"History"}},
	{regexp.MustCompile(`\bhorror\b|\bscary\b|\bslashers?\b`), []string{"Horror"}},
	{regexp.MustCompile(`\bmusicals?\b`), []string{"Music"}},
	{regexp.MustCompile(`\bmyster(?:y|ies)\b|\bwhodunits?\b`), []string{"Mystery"}},
	{regexp.MustCompile(`\bsci[ -]?fi\b|\bscience fiction\b|\bspace operas?\b`), []string{"Science Fiction"}},
	{regexp.MustCompile(`\bthrillers?\b|\bsuspense\b`), []string{"Thriller"}},
	{regexp.MustCompile(`\bwar\b`), []string{"War"}},
	{regexp.MustCompile(`\bwesterns?\b`), []string{"Western"}},
}

// genreAliases canonicalizes single genre strings the model emits
// ("sci-fi" -> "Science Fiction"). Built from the single-genre rules
// plus the canonical names themselves.
var genreAliases = buildGenreAliases()

func buildGenreAliases() map[string]string {
	aliases := map[string]string{
		"sci-fi": "Science Fiction", "scifi": "Science Fiction", "sci fi": "Science Fiction",
		"science fiction": "Science Fiction", "romantic": "Romance", "animated": "Animation",
		"anime": "Animation", "historical": "History", "musical": "Music",
		"comedies": "Comedy", "dramas": "Drama", "thrillers": "Thriller",
		"mysteries": "Mystery", "documentaries": "Documentary", "westerns": "Western",
	}
	for _, r := range genreRules {
		if len(r.genres) != 1 {
			continue
		}
		aliases[strings.ToLower(r.genres[0])] = r.genres[0]
	}
	return aliases
}

// canonicalGenre folds a model-emitted genre onto its canonical name
// when recognized, otherwise returns the input trimmed as-is.
func canonicalGenre(raw string) string {
	raw = strings.TrimSpace(raw)
	if canonical, ok := genreAliases[strings.ToLower(raw)]; ok {
		return canonical
	}
	return raw
}

// adultPhrases are consumed by the adult-content flag upstream; they
// must not feed the Family genre rule.
var adultPhraseRe = regexp.MustCompile(`\bfamily[- ]friendly\b`)

// matchGenres returns canonical genres named in the lowercased prompt,
// in table order.
func matchGenres(lower string) []string {
	lower = adultPhraseRe.ReplaceAllString(lower, " ")
	var genres []string
	seen := make(map[string]bool)
	for _, rule := range genreRules {
		if !rule.re.MatchString(lower) {
			continue
		}
		for _, g := range rule.genres {
			if !seen[g] {
				seen[g] = true
				genres = append(genres, g)
			}
		}
	}
	return genres
}

// vocabEntry maps a pattern onto a single output word.
type vocabEntry struct {
	re    *regexp.Regexp
	value string
}

var moodVocab = []vocabEntry{
	{regexp.MustCompile(`\bcozy\b|\bcosy\b`), "cozy"},
	{regexp.MustCompile(`\btense\b`), "tense"},
	{regexp.MustCompile(`\bnostalgi(?:a|c)\b`), "nostalgic"},
	{regexp.MustCompile(`\bfeel[ -]?good\b`), "feel-good"},
	{regexp.MustCompile(`\buplifting\b`), "uplifting"},
	{regexp.MustCompile(`\bheartwarming\b`), "heartwarming"},
	{regexp.MustCompile(`\bcomforting\b`), "comforting"},
	{regexp.MustCompile(`\bmelanchol(?:y|ic)\b`), "melancholy"},
	{regexp.MustCompile(`\bwhimsical\b`), "whimsical"},
	{regexp.MustCompile(`\batmospheric\b`), "atmospheric"},
	{regexp.MustCompile(`\bgritty\b`), "gritty"},
	{regexp.MustCompile(`\bspooky\b`), "spooky"},
	{regexp.MustCompile(`\bcreepy\b`), "creepy"},
	{regexp.MustCompile(`\bunsettling\b`), "unsettling"},
	{regexp.MustCompile(`\brelaxing\b|\bchill\b`), "relaxing"},
}

var toneVocab = []vocabEntry{
	{regexp.MustCompile(`\bdark\b|\bbleak\b`), "dark"},
	{regexp.MustCompile(`\blight(?:hearted)?\b`), "light"},
	{regexp.MustCompile(`\bwholesome\b`), "wholesome"},
	{regexp.MustCompile(`\bwarm\b`), "warm"},
	{regexp.MustCompile(`\bcynical\b`), "cynical"},
	{regexp.MustCompile(`\bearnest\b`), "earnest"},
	{regexp.MustCompile(`\bcampy\b`), "campy"},
}

// matchVocab returns vocabulary values present in the lowercased
// prompt, in table order.
func matchVocab(lower string, vocab []vocabEntry) []string {
	var out []string
	for _, entry := range vocab {
		if entry.re.MatchString(lower) {
			out = append(out, entry.value)
		}
	}
	return out
}

var (
	eraDecadeRe  = regexp.MustCompile(`\b((?:19|20)\d0|\d0)s\b`)
	eraClassicRe = regexp.MustCompile(`\bclassics?\b|\bgolden age\b|\bold movies\b`)
	eraModernRe  = regexp.MustCompile(`\bmodern\b|\brecent\b|\bcontemporary\b|\blatest\b`)
)

// matchEra returns a coarse period hint. Decades normalize to the
// short form for the 1900s ("1980s" -> "80s") and keep the century for
// the 2000s ("2010s").
func matchEra(lower string) string {
	if m := eraDecadeRe.FindStringSubmatch(lower); m != nil {
		return normalizeDecade(m[1])
	}
	if eraClassicRe.MatchString(lower) {
		return "classic"
	}
	if eraModernRe.MatchString(lower) {
		return "modern"
	}
	return ""
}

func normalizeDecade(d string) string {
	switch {
	case strings.HasPrefix(d, "19"):
		return d[2:] + "s"
	case strings.HasPrefix(d, "20"):
		return d + "s"
	case d == "00" || d == "10" || d == "20":
		return "20" + d + "s"
	default:
		return d + "s"
	}
}

var (
	popBlockbusterRe = regexp.MustCompile(`\bblockbusters?\b|\bbig[ -]budget\b`)
	popObscureRe     = regexp.MustCompile(`\bobscure\b|\bhidden gems?\b|\bunderrated\b|\bdeep cuts?\b|\bunder the radar\b|\blesser[ -]known\b`)
	popIndieRe       = regexp.MustCompile(`\bindie\b|\bindependent\b|\bart[ -]?house\b`)
	popMainstreamRe  = regexp.MustCompile(`\bmainstream\b|\bpopular\b|\bwell[ -]known\b|\bcrowd[ -]pleasers?\b`)
	popMixedRe       = regexp.MustCompile(`\bmix of\b|\bmixed bag\b|\bvariety\b`)
)

func matchPopularity(lower string) models.PopularityPref {
	switch {
	case popBlockbusterRe.MatchString(lower):
		return models.PopularityBlockbuster
	case popObscureRe.MatchString(lower):
		return models.PopularityObscure
	case popIndieRe.MatchString(lower):
		return models.PopularityIndie
	case popMainstreamRe.MatchString(lower):
		return models.PopularityMainstream
	case popMixedRe.MatchString(lower):
		return models.PopularityMixed
	default:
		return ""
	}
}

var (
	complexMindRe   = regexp.MustCompile(`\bmind[ -]?bending\b|\bcerebral\b|\bbrainy\b|\bmesses? with your head\b`)
	complexHighRe   = regexp.MustCompile(`\bcomplex\b|\bintricate\b|\blayered\b|\bdense\b`)
	complexSimpleRe = regexp.MustCompile(`\bsimple\b|\beasy to follow\b|\bundemanding\b|\beasy watch(?:ing)?\b`)
)

func matchComplexity(lower string) string {
	switch {
	case complexMindRe.MatchString(lower):
		return "mindbending"
	case complexHighRe.MatchString(lower):
		return "complex"
	case complexSimpleRe.MatchString(lower):
		return "simple"
	default:
		return ""
	}
}

var (
	pacingSlowBurnRe = regexp.MustCompile(`\bslow[ -]burns?\b`)
	pacingSlowRe     = regexp.MustCompile(`\bslow[ -]paced\b|\bleisurely\b|\bmeditative\b`)
	pacingFastRe     = regexp.MustCompile(`\bfast[ -]paced\b|\bbreakneck\b|\bsnappy\b|\baction[ -]packed\b`)
)

func matchPacing(lower string) string {
	switch {
	case pacingSlowBurnRe.MatchString(lower):
		return "slow burn"
	case pacingSlowRe.MatchString(lower):
		return "slow"
	case pacingFastRe.MatchString(lower):
		return "fast"
	default:
		return ""
	}
}

// languageCodes maps spoken language names onto ISO 639-1 codes.
var languageCodes = map[string]string{
	"english": "en", "spanish": "es", "french": "fr", "german": "de",
	"italian": "it", "portuguese": "pt", "japanese": "ja", "korean": "ko",
	"mandarin": "zh", "chinese": "zh", "cantonese": "zh", "hindi": "hi",
	"russian": "ru", "swedish": "sv", "danish": "da", "norwegian": "no",
	"dutch": "nl", "polish": "pl", "turkish": "tr", "arabic": "ar",
	"thai": "th", "indonesian": "id", "greek": "el", "hebrew": "he",
	"finnish": "fi", "czech": "cs", "icelandic": "is",
}

// languageCtxRe requires language-shaped context so nationality words
// used thematically ("greek mythology") do not become filters. Both
// alternatives capture the language name.
var languageCtxRe = buildLanguageCtxRe()

func buildLanguageCtxRe() *regexp.Regexp {
	names := make([]string, 0, len(languageCodes))
	for name := range languageCodes {
		names = append(names, name)
	}
	// Alternation order does not matter; no name is a prefix of another.
	alt := strings.Join(names, "|")
	return regexp.MustCompile(
		`\b(?:in|language)\s+(` + alt + `)\b` +
			`|\b(` + alt + `)(?:[ -]language|\s+(?:movies?|films?|shows?|series|cinema|audio|dubs?|dubbed|subtitles?))\b`)
}

// matchLanguages returns ISO codes for languages named with filter
// intent, in order of first appearance.
func matchLanguages(lower string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, m := range languageCtxRe.FindAllStringSubmatch(lower, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		code := languageCodes[name]
		if code != "" && !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

var (
	// Plural genre nouns read as movie requests ("romantic comedies");
	// show phrasing is caught by the media-type detector upstream, so
	// these only apply when that detector saw nothing.
	impliedMovieRe = regexp.MustCompile(`\b(?:comedies|dramas|thrillers|westerns|musicals|documentaries|mysteries|rom[ -]?coms|biopics|flicks)\b`)
	impliedShowRe  = regexp.MustCompile(`\b(?:sitcoms?|miniseries|docuseries|dramedies)\b`)
)

// impliedMediaType infers a media type from plural genre nouns when
// the prompt never names movies or shows directly.
func impliedMediaType(lower string) models.MediaType {
	movie := impliedMovieRe.MatchString(lower)
	show := impliedShowRe.MatchString(lower)
	switch {
	case movie && !show:
		return models.MediaTypeMovie
	case show && !movie:
		return models.MediaTypeShow
	default:
		return ""
	}
}
