// Package credkey converts connection credentials between the decoded
// key/value pair form and the textual encodings the storage layer has
// used over time. Writes always produce the brace-delimited set form;
// reads accept every historical shape.
package credkey

import (
	"encoding/json"
	"log"
	"strings"
)

// Pair is a single key/value entry of a connection key. Order is
// preserved; duplicate keys are allowed and resolve last-write-wins
// when viewed as a map.
type Pair struct {
	Key   string
	Value string
}

// Decode parses stored connection key text into pairs. It tries, in
// order: a JSON array of "key=value" strings, the legacy set-literal
// form {"key=value",...}, and finally a bare single pair. Malformed
// entries are dropped; Decode never fails, a row that cannot be parsed
// at all decodes to nil.
func Decode(raw string) []Pair {
	pairs, _ := DecodeLenient(raw)
	return pairs
}

// DecodeLenient behaves like Decode but also reports how many entries
// were skipped as malformed, so callers can log partial corruption.
func DecodeLenient(raw string) ([]Pair, int) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, 0
	}

	// JSON array form: ["a=1","b=2"]
	var arr []string
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return DecodeSlice(arr)
	}

	// Set-literal form: {"a=1","b=2"}
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		inner := strings.TrimSpace(text[1 : len(text)-1])
		if inner == "" {
			return nil, 0
		}
		parts := strings.Split(inner, ",")
		entries := make([]string, 0, len(parts))
		for _, part := range parts {
			entries = append(entries, strings.Trim(strings.TrimSpace(part), `"`))
		}
		return DecodeSlice(entries)
	}

	// Bare single pair: "a=1"
	if strings.Count(text, "=") == 1 {
		return DecodeSlice([]string{text})
	}

	log.Printf("credkey: unrecognized connection key format, dropping value")
	return nil, 1
}

// DecodeSlice parses entries already shaped as "key=value" strings.
// Entries without a separator or with an empty key or value after
// trimming are skipped.
func DecodeSlice(entries []string) ([]Pair, int) {
	var pairs []Pair
	skipped := 0
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			skipped++
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			skipped++
			continue
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	if skipped > 0 {
		log.Printf("credkey: skipped %d malformed connection key entries", skipped)
	}
	return pairs, skipped
}

// Encode serializes pairs into the canonical set-literal wire format,
// e.g. {"access_token=abc","sheet_tab=Tab1"}. Keys and values must not
// contain commas, double quotes or '='; such inputs do not round-trip.
func Encode(pairs []Pair) string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`"`)
		sb.WriteString(p.Key)
		sb.WriteString("=")
		sb.WriteString(p.Value)
		sb.WriteString(`"`)
	}
	sb.WriteString("}")
	return sb.String()
}

// Merge replaces every pair named key with a single new pair appended
// at the end, preserving the order of the remaining entries.
func Merge(pairs []Pair, key, value string) []Pair {
	merged := make([]Pair, 0, len(pairs)+1)
	for _, p := range pairs {
		if p.Key != key {
			merged = append(merged, p)
		}
	}
	return append(merged, Pair{Key: key, Value: value})
}

// Get returns the last value stored under key, honouring the
// last-write-wins view of duplicate keys.
func Get(pairs []Pair, key string) (string, bool) {
	for i := len(pairs) - 1; i >= 0; i-- {
		if pairs[i].Key == key {
			return pairs[i].Value, true
		}
	}
	return "", false
}

// Map collapses pairs into a plain map, last write wins.
func Map(pairs []Pair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}
