package tags

// defaultStopwords is the built-in stop-word list. Web-title noise words
// ("home", "page", "login") are included alongside ordinary function words.
var defaultStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
	"are": true, "was": true, "were": true, "has": true, "have": true,
	"had": true, "not": true, "but": true, "you": true, "your": true,
	"all": true, "can": true, "will": true, "how": true, "what": true,
	"when": true, "where": true, "why": true, "who": true, "which": true,
	"about": true, "into": true, "more": true, "most": true, "other": true,
	"some": true, "such": true, "than": true, "then": true, "there": true,
	"these": true, "they": true, "our": true, "its": true, "also": true,
	"new": true, "via": true, "per": true, "out": true, "off": true,
	"over": true, "under": true, "www": true, "http": true, "https": true,
	"com": true, "org": true, "net": true, "html": true, "php": true,
	"home": true, "page": true, "pages": true, "site": true, "web": true,
	"login": true, "sign": true, "index": true, "search": true,
	"official": true, "free": true, "online": true, "best": true,
	"top": true, "get": true, "use": true, "using": true, "one": true,
	"two": true, "first": true, "last": true, "next": true, "previous": true,
}

// Stopwords is an immutable stop-word set.
type Stopwords struct {
	words map[string]bool
}

// NewStopwords builds the stop-word set: the built-in list plus any extras
// (extras are lower-cased).
func NewStopwords(extra []string) *Stopwords {
	words := make(map[string]bool, len(defaultStopwords)+len(extra))
	for w := range defaultStopwords {
		words[w] = true
	}
	for _, w := range extra {
		if w = normalizeWord(w); w != "" {
			words[w] = true
		}
	}
	return &Stopwords{words: words}
}

// Contains reports whether word (already lower-cased) is a stop-word.
func (s *Stopwords) Contains(word string) bool {
	return s.words[word]
}
