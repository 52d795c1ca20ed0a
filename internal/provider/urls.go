package provider

import "regexp"

// absoluteURLPattern recognises http(s) URLs with an explicit scheme.
// Deliberately a simple pattern match, not a parser: bare domains without
// a scheme are missed (acceptable false negative), and a malformed match
// at worst asks the vendor for grounding it cannot use — the call still
// succeeds without grounding.
var absoluteURLPattern = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)

// ContainsAbsoluteURL reports whether s contains at least one absolute
// http(s) URL. The assembler uses this to decide whether a generation
// request may perform live web grounding.
func ContainsAbsoluteURL(s string) bool {
	return absoluteURLPattern.MatchString(s)
}
