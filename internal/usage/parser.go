package usage

import (
	"encoding/json"
	"time"
)

const dayKeyLen = 10

// Transcript lines timestamped before RFC 3339 formatting was settled use
// this layout.
const legacyTimestampLayout = "2006-01-02T15:04:05.000Z"

type lineEntry struct {
	Timestamp string   `json:"timestamp"`
	Message   *lineMsg `json:"message,omitempty"`
	CostUSD   *float64 `json:"costUSD,omitempty"`
}

type lineMsg struct {
	Model string     `json:"model"`
	Usage *lineUsage `json:"usage,omitempty"`
}

type lineUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
}

// ParseLine converts one transcript line into a Record. The second return
// is false for lines that carry no usage: malformed JSON, a missing or
// unparseable timestamp, or a message without a usage object. Callers skip
// those silently; a line is never an error.
func ParseLine(line []byte) (Record, bool) {
	var e lineEntry
	if err := json.Unmarshal(line, &e); err != nil {
		return Record{}, false
	}
	if e.Message == nil || e.Message.Usage == nil {
		return Record{}, false
	}
	if len(e.Timestamp) < dayKeyLen {
		return Record{}, false
	}
	if _, err := time.Parse(time.RFC3339, e.Timestamp); err != nil {
		if _, err := time.Parse(legacyTimestampLayout, e.Timestamp); err != nil {
			return Record{}, false
		}
	}

	u := e.Message.Usage
	return Record{
		DayKey:              e.Timestamp[:dayKeyLen],
		Model:               e.Message.Model,
		InputTokens:         u.InputTokens,
		OutputTokens:        u.OutputTokens,
		CacheCreationTokens: u.CacheCreationInputTokens,
		CacheReadTokens:     u.CacheReadInputTokens,
		CostUSD:             e.CostUSD,
	}, true
}
