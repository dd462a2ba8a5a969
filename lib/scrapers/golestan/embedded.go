package golestan

import (
	"fmt"
	"html"
	"regexp"
)

// the portal renders its data as javascript assignments inside a script
// block, e.g. F41701 = '17.25'; — tabular payloads are single-quoted
// pseudo-xml strings in the same shape. none of it is well-formed markup,
// so extraction is pattern based on purpose.

var scalarVarRegex = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_]*)\s*=\s*'([^']*)';`)
var xmlDatRegex = regexp.MustCompile(`(?s)xmlDat\s*=\s*["'](.*?)["'];`)

// scriptVars collects every name = '...'; assignment of a script body into
// one map. missing variables are simply absent, lookups default to "".
func scriptVars(script string) map[string]string {
	vars := map[string]string{}
	for _, m := range scalarVarRegex.FindAllStringSubmatch(script, -1) {
		if _, seen := vars[m[1]]; seen {
			continue
		}
		vars[m[1]] = m[2]
	}
	return vars
}

// scriptVar returns the first quoted string assigned to the named variable,
// or "" when the page does not carry it. absence is common and expected,
// never an error.
func scriptVar(script, name string) string {
	re := regexp.MustCompile(fmt.Sprintf(`%s\s*=\s*'([^']*)';`, regexp.QuoteMeta(name)))
	m := re.FindStringSubmatch(script)
	if m == nil {
		return ""
	}
	return m[1]
}

// extractXmlDat returns the xmlDat report payload of a response, or "".
func extractXmlDat(body string) string {
	m := xmlDatRegex.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}

// Row is one tag-like fragment of a pseudo-xml payload, flattened to its
// attributes. field codes are opaque portal identifiers.
type Row map[string]string

var attrRegex = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_]*)="([^"]*)"`)

// parseRows tokenizes a pseudo-xml payload into one Row per <tag .../>
// fragment. the payload is not trustworthy enough for a real xml decoder:
// it regularly carries unescaped characters and dangling markup, so the
// tokenizer is tolerant by design and degrades to an empty result instead
// of failing.
func parseRows(payload, tag string) []Row {
	if payload == "" {
		return nil
	}
	fragmentRegex, err := regexp.Compile(fmt.Sprintf(`<%s\b([^>]*?)/?>`, regexp.QuoteMeta(tag)))
	if err != nil {
		return nil
	}

	var rows []Row
	for _, fragment := range fragmentRegex.FindAllStringSubmatch(payload, -1) {
		row := Row{}
		// attribute values arrive xml-escaped, markup embedded in them
		// (like <BR>) only exists after unescaping
		for _, attr := range attrRegex.FindAllStringSubmatch(fragment[1], -1) {
			row[attr[1]] = html.UnescapeString(attr[2])
		}
		rows = append(rows, row)
	}
	return rows
}
