package wiktionary

import "strings"

// Languages maps ISO 639-3 style codes to the English language names used
// as Wiktionary headings, and back.
type Languages struct {
	byCode map[string]string
	byName map[string]string
}

// NewLanguages builds a table from code → name pairs.
func NewLanguages(names map[string]string) *Languages {
	l := &Languages{
		byCode: make(map[string]string, len(names)),
		byName: make(map[string]string, len(names)),
	}
	for code, name := range names {
		l.byCode[code] = name
		l.byName[name] = code
	}
	return l
}

// DefaultLanguages covers the languages the cognate graph is most often
// searched with. Callers needing more can build their own table.
func DefaultLanguages() *Languages {
	return NewLanguages(defaultNames)
}

// Name returns the heading name for code.
func (l *Languages) Name(code string) (string, bool) {
	n, ok := l.byCode[code]
	return n, ok
}

// NameOr returns the heading name for code, or code itself if unknown.
func (l *Languages) NameOr(code string) string {
	if n, ok := l.byCode[code]; ok {
		return n
	}
	return code
}

// Code returns the code for a heading name. Underscores, as found in
// Wiktionary anchors, are read as spaces.
func (l *Languages) Code(name string) (string, bool) {
	c, ok := l.byName[strings.ReplaceAll(name, "_", " ")]
	return c, ok
}

var defaultNames = map[string]string{
	"ang":     "Old English",
	"ara":     "Arabic",
	"cat":     "Catalan",
	"ces":     "Czech",
	"cym":     "Welsh",
	"dan":     "Danish",
	"deu":     "German",
	"ell":     "Greek",
	"eng":     "English",
	"enm":     "Middle English",
	"fas":     "Persian",
	"fin":     "Finnish",
	"fra":     "French",
	"fro":     "Old French",
	"gem-pro": "Proto-Germanic",
	"gle":     "Irish",
	"got":     "Gothic",
	"grc":     "Ancient Greek",
	"heb":     "Hebrew",
	"hin":     "Hindi",
	"hun":     "Hungarian",
	"ine-pro": "Proto-Indo-European",
	"isl":     "Icelandic",
	"ita":     "Italian",
	"jpn":     "Japanese",
	"kor":     "Korean",
	"lat":     "Latin",
	"nld":     "Dutch",
	"nob":     "Norwegian Bokmål",
	"non":     "Old Norse",
	"pol":     "Polish",
	"por":     "Portuguese",
	"ron":     "Romanian",
	"rus":     "Russian",
	"san":     "Sanskrit",
	"spa":     "Spanish",
	"swe":     "Swedish",
	"tur":     "Turkish",
	"ukr":     "Ukrainian",
	"zho":     "Chinese",
}
