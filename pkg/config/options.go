package config

import (
	"strings"

	"go.uber.org/zap"
)

const (
	optionSeparator = ';'
	optionAssign    = '='
	optionEscape    = '\\'
)

// ParsePluginOptions decodes a SIP003 plugin options string of the form
// "k1=v1;k2=v2" into a map.
//
// A backslash escapes the following character, so "\;", "\=" and "\\" are
// literal. Keys and values are trimmed of surrounding whitespace. Empty entries
// are dropped. Entries without "=" or with an empty key are skipped with a
// warning. When a key repeats the last value wins.
func ParsePluginOptions(raw string, logger *zap.Logger) map[string]string {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := make(map[string]string)
	for _, e := range splitOptions(raw) {
		if !e.assigned {
			if strings.TrimSpace(e.key) == "" {
				continue
			}
			logger.Warn("skipping plugin option without value",
				zap.String("entry", e.raw),
			)
			continue
		}

		key := strings.TrimSpace(e.key)
		if key == "" {
			logger.Warn("skipping plugin option with empty key",
				zap.String("entry", e.raw),
			)
			continue
		}
		value := strings.TrimSpace(e.value)

		if prev, ok := opts[key]; ok {
			logger.Debug("plugin option overridden",
				zap.String("key", key),
				zap.String("previous", prev),
				zap.String("value", value),
			)
		}
		opts[key] = value
	}

	return opts
}

type optionEntry struct {
	raw      string
	key      string
	value    string
	assigned bool
}

// splitOptions tokenizes raw into entries, resolving escapes.
func splitOptions(raw string) []optionEntry {
	var (
		entries  []optionEntry
		cur      strings.Builder
		key      string
		assigned bool
		start    int
	)

	flush := func(end int) {
		e := optionEntry{raw: raw[start:end], assigned: assigned}
		if assigned {
			e.key, e.value = key, cur.String()
		} else {
			e.key = cur.String()
		}
		entries = append(entries, e)
		cur.Reset()
		key, assigned = "", false
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == optionEscape && i+1 < len(raw):
			i++
			cur.WriteByte(raw[i])
		case c == optionSeparator:
			flush(i)
			start = i + 1
		case c == optionAssign && !assigned:
			key = cur.String()
			cur.Reset()
			assigned = true
		default:
			cur.WriteByte(c)
		}
	}
	flush(len(raw))

	return entries
}
