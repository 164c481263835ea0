package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	minScore = 0
	maxScore = 10
)

var looseScorePattern = regexp.MustCompile(`(?i)"?score"?\s*[:：]\s*"?(\d+(?:\.\d+)?)`)

// cleanJSONResponse drops code fences and any prose around the first JSON object.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// parseJudgment reads {"score": n, "reason": "..."}. A score given as a
// string is accepted; a reply that is not JSON but still names a score
// ("score: 7") is accepted too. Anything else is ErrMalformedReply.
func parseJudgment(reply string) (Judgment, error) {
	var parsed struct {
		Score  json.RawMessage `json:"score"`
		Reason string          `json:"reason"`
	}

	body := cleanJSONResponse(reply)
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		m := looseScorePattern.FindStringSubmatch(reply)
		if m == nil {
			return Judgment{}, fmt.Errorf("decode judgment: %v: %w", err, ErrMalformedReply)
		}
		score, _ := strconv.ParseFloat(m[1], 64)
		return checkScore(Judgment{Score: score})
	}

	if len(parsed.Score) == 0 || string(parsed.Score) == "null" {
		return Judgment{}, fmt.Errorf("missing score: %w", ErrMalformedReply)
	}

	raw := strings.Trim(string(parsed.Score), `"`)
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Judgment{}, fmt.Errorf("score %s is not a number: %w", parsed.Score, ErrMalformedReply)
	}
	return checkScore(Judgment{Score: score, Reason: strings.TrimSpace(parsed.Reason)})
}

func checkScore(j Judgment) (Judgment, error) {
	if math.IsNaN(j.Score) || math.IsInf(j.Score, 0) || j.Score < minScore || j.Score > maxScore {
		return Judgment{}, fmt.Errorf("score %v out of range: %w", j.Score, ErrMalformedReply)
	}
	return j, nil
}
