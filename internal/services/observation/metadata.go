package observation

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"bidvault/internal/domain"
)

// Observation fields lifted into Metadata.
const (
	fieldObservationID = "observation_id"
	fieldUserID        = "user_id"
	fieldSessionID     = "session_id"
	fieldTimestamp     = "timestamp"
	fieldCorrect       = "correct"
	fieldResult        = "result"
	fieldClassroom     = "classroom"
	fieldSkillPath     = "skill_path"
	fieldDeal          = "deal"
	fieldSubfolder     = "subfolder"
	fieldDealNumber    = "deal_number"
)

// ExtractMetadata projects the cleartext metadata out of obs. It performs
// no validation; missing or unparseable fields are left zero. A non-empty
// classroom overrides the observation's own.
//
// timestamp may be an RFC 3339 string or Unix milliseconds. correct is read
// from the top level, falling back to result.correct. deal.subfolder and
// deal.deal_number come from the nested deal object.
func ExtractMetadata(obs domain.Observation, classroom string) domain.Metadata {
	m := domain.Metadata{
		ObservationID: domain.ObservationID(str(obs[fieldObservationID])),
		UserID:        domain.IdentityID(str(obs[fieldUserID])),
		SessionID:     domain.SessionID(str(obs[fieldSessionID])),
		Timestamp:     timestamp(obs[fieldTimestamp]),
		Classroom:     classroom,
		SkillPath:     str(obs[fieldSkillPath]),
	}
	if m.Classroom == "" {
		m.Classroom = str(obs[fieldClassroom])
	}

	if c, ok := obs[fieldCorrect].(bool); ok {
		m.Correct = c
	} else if res, ok := obs[fieldResult].(map[string]any); ok {
		m.Correct, _ = res[fieldCorrect].(bool)
	}

	if deal, ok := obs[fieldDeal].(map[string]any); ok {
		m.DealSubfolder = str(deal[fieldSubfolder])
		if n, ok := number(deal[fieldDealNumber]); ok {
			m.DealNumber = int(n)
		}
	}
	return m
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func timestamp(v any) time.Time {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}
	}
	if ms, ok := number(v); ok && ms > 0 {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return time.Time{}
}
