package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var folds = strings.NewReplacer(
	"&", " and ",
	"á", "a", "à", "a", "â", "a", "ä", "a", "å", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "ø", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n", "ß", "ss",
)

// Generate lowercases name, folds common Latin accents to ASCII and joins the
// remaining alphanumeric runs with single hyphens.
//
//	"Copper Works"        -> "copper-works"
//	"Bodkin (Set of 3)"   -> "bodkin-set-of-3"
//	"Knives & Tools"      -> "knives-and-tools"
func Generate(name string) string {
	s := folds.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FromFilename turns a data file name such as "product-bodkins.json" into the
// slug it is served under ("product-bodkins").
func FromFilename(name string) string {
	name = name[strings.LastIndexAny(name, `/\`)+1:]
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return Generate(name)
}
