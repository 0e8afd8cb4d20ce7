package similarity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/issuepilot/issuepilot/internal/ai"
)

// ScoredEntry is one validated comparison from a model reply. Index is
// 1-based, matching the numbering in the prompt. Similarity is nil when
// the model left it out or sent something that is not a number.
type ScoredEntry struct {
	Index      int
	Similarity *float64
	Reason     string
}

// score accepts a JSON number or a numeric string and tolerates anything
// else by staying unset. Non-finite values ("NaN", "Infinity") count as unset.
type score struct {
	value float64
	set   bool
}

func (s *score) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		s.setFinite(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			s.setFinite(f)
		}
	}
	return nil
}

func (s *score) setFinite(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	s.value, s.set = f, true
}

type replyEntry struct {
	Index      *int   `json:"index"`
	Similarity score  `json:"similarity"`
	Reason     string `json:"reason"`
}

type replyEnvelope struct {
	Results []replyEntry `json:"results"`
}

// ParseReply decodes a scoring reply. Both {"results": [...]} and a bare
// array are accepted. ok is false when the reply is not structured data
// of either shape; entries without an index are dropped.
func ParseReply(text string) (entries []ScoredEntry, ok bool) {
	var raw []replyEntry

	envelope := ai.Parse[replyEnvelope](text, "similarity reply")
	if envelope.Success && envelope.Data.Results != nil {
		raw = envelope.Data.Results
	} else {
		list := ai.Parse[[]replyEntry](text, "similarity reply")
		if !list.Success || list.Data == nil {
			return nil, false
		}
		raw = list.Data
	}

	entries = make([]ScoredEntry, 0, len(raw))
	for _, r := range raw {
		if r.Index == nil {
			continue
		}
		entry := ScoredEntry{Index: *r.Index, Reason: strings.TrimSpace(r.Reason)}
		if r.Similarity.set {
			v := r.Similarity.value
			entry.Similarity = &v
		}
		entries = append(entries, entry)
	}
	return entries, true
}
