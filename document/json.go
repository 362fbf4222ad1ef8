package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/darynku/ignorelogger"
	"github.com/tidwall/gjson"
)

// maxJSONDepth bounds the rebuild. Anything nested deeper is replaced by
// ignorelogger.MaxDepthPlaceholder.
const maxJSONDepth = 64

// RedactJSON removes every object key the policy marks sensitive, at any
// depth. Keys keep their order and scalars keep their original text, so
// numbers are not reformatted. The output is compact.
//
// Invalid JSON is passed through a pattern based strip instead and
// ErrMalformedJSON is returned along with the stripped text. The strip is
// best effort and may miss keys in deeply nested or escaped content.
func (x *Redactor) RedactJSON(raw []byte) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = SentinelRedactionFailed, fmt.Errorf("%w: %v", ErrRedactionFailed, r)
		}
	}()

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return SentinelNoBody, nil
	}
	if !gjson.ValidBytes(raw) {
		return x.strip(string(raw)), ErrMalformedJSON
	}

	var buf bytes.Buffer
	buf.Grow(len(raw))
	x.writeJSON(&buf, gjson.ParseBytes(raw), 0)
	return buf.String(), nil
}

func (x *Redactor) writeJSON(buf *bytes.Buffer, v gjson.Result, depth int) {
	if depth >= maxJSONDepth && (v.IsObject() || v.IsArray()) {
		writeString(buf, ignorelogger.MaxDepthPlaceholder)
		return
	}

	switch {
	case v.IsObject():
		buf.WriteByte('{')
		n := 0
		v.ForEach(func(key, value gjson.Result) bool {
			if x.policy.IsSensitiveKey(key.String()) {
				return true
			}
			if n > 0 {
				buf.WriteByte(',')
			}
			n++
			if key.Raw != "" {
				buf.WriteString(key.Raw)
			} else {
				writeString(buf, key.String())
			}
			buf.WriteByte(':')
			x.writeJSON(buf, value, depth+1)
			return true
		})
		buf.WriteByte('}')

	case v.IsArray():
		buf.WriteByte('[')
		n := 0
		v.ForEach(func(_, value gjson.Result) bool {
			if n > 0 {
				buf.WriteByte(',')
			}
			n++
			x.writeJSON(buf, value, depth+1)
			return true
		})
		buf.WriteByte(']')

	default:
		buf.WriteString(v.Raw)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	raw, _ := json.Marshal(s)
	buf.Write(raw)
}

type stripPattern struct {
	re   *regexp.Regexp
	repl string
}

const jsonValuePattern = `("[^"]*"|\[[^\]]*\]|[^,}]+)`

// buildStripPatterns compiles, for every key rule, the shapes a sensitive
// member can take in a JSON text: followed by another member, preceded by
// one, alone in its object, or cut off at the end of a truncated document.
func buildStripPatterns(policy *ignorelogger.Policy) []stripPattern {
	keys := make([]string, 0, len(policy.KeyRules())+len(policy.ExactRules()))
	for _, rule := range policy.KeyRules() {
		key := `"` + regexp.QuoteMeta(rule) + `"`
		if policy.MatchMode() == ignorelogger.MatchContains {
			key = `"[^"]*` + regexp.QuoteMeta(rule) + `[^"]*"`
		}
		keys = append(keys, key)
	}
	for _, rule := range policy.ExactRules() {
		keys = append(keys, `"`+regexp.QuoteMeta(rule)+`"`)
	}

	var patterns []stripPattern
	for _, key := range keys {
		member := key + `\s*:\s*` + jsonValuePattern

		patterns = append(patterns,
			stripPattern{re: regexp.MustCompile(`(?i)\s*` + member + `\s*,`), repl: ""},
			stripPattern{re: regexp.MustCompile(`(?i),\s*` + member + `\s*`), repl: ""},
			stripPattern{re: regexp.MustCompile(`(?i)\{\s*` + member + `\s*\}`), repl: "{}"},
			stripPattern{re: regexp.MustCompile(`(?i),?\s*` + key + `\s*(:\s*` + jsonValuePattern + `?)?\s*$`), repl: ""},
		)
	}
	return patterns
}

func (x *Redactor) strip(text string) string {
	for _, p := range x.patterns {
		text = p.re.ReplaceAllString(text, p.repl)
	}
	return text
}
