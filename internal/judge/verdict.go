package judge

// Verdict is the single outcome assigned to an event.
type Verdict string

const (
	OK           Verdict = "OK"
	NG           Verdict = "NG"
	Warn         Verdict = "WARN"
	Unclassified Verdict = "UNCLASSIFIED"
)

// Reason names one signal that fired.
type Reason string

const (
	ReasonPatternMatch Reason = "pattern-match"
	ReasonChannelBlock Reason = "channel-block"
	ReasonExcessLength Reason = "excess-length"
)

// Evidence records why a verdict was reached. It is empty for OK.
type Evidence struct {
	Reasons    []Reason `json:"reasons,omitempty"`
	PatternKey string   `json:"pattern,omitempty"`
	Similarity float64  `json:"similarity,omitempty"`
	Channel    string   `json:"ng_channel,omitempty"`
	Language   string   `json:"language,omitempty"`
	Length     int      `json:"length,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	EventType  string   `json:"event_type,omitempty"` // set for UNCLASSIFIED
}

// Has reports whether r is among the reasons.
func (e Evidence) Has(r Reason) bool {
	for _, x := range e.Reasons {
		if x == r {
			return true
		}
	}
	return false
}

// Judgement is the engine's decision for one event.
type Judgement struct {
	EventID  string   `json:"event_id"`
	Verdict  Verdict  `json:"verdict"`
	Evidence Evidence `json:"evidence"`
	// Channel is the author identifier compared against the blocklist.
	Channel string `json:"channel"`
}
