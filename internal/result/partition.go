package result

import (
	"fmt"

	"github.com/gyaneshwarpardhi/ngjudge/internal/event"
	"github.com/gyaneshwarpardhi/ngjudge/internal/judge"
)

// Fields attached to every record of the annotated view.
const (
	FieldVerdict = "verdict"
	FieldNGFlag  = "ng_flg"
	FieldNGInfo  = "ng_info"
)

// Record is the reduced view of an event used by the per-verdict lists.
type Record struct {
	ID             string `json:"id"`
	ChannelID      string `json:"channelId"`
	DisplayName    string `json:"displayName"`
	DisplayMessage string `json:"displayMessage"`
}

// Counts summarises bucket sizes. Total == OK + NG + Warn + Unclassified.
type Counts struct {
	Total        int `json:"total"`
	OK           int `json:"ok"`
	NG           int `json:"ng"`
	Warn         int `json:"warn"`
	Unclassified int `json:"unclassified"`
}

// ResultSet holds every view produced for one session. It is never mutated once built.
type ResultSet struct {
	RunID        string                   `json:"run_id"`
	VideoID      string                   `json:"video_id"`
	All          []map[string]interface{} `json:"all"`
	OK           []Record                 `json:"ok"`
	NG           []Record                 `json:"ng"`
	Warn         []Record                 `json:"warn"`
	Unclassified []Record                 `json:"unclassified"`
	NGChannels   []string                 `json:"ng_channels"`
	Counts       Counts                   `json:"counts"`
}

// Partition merges judgements back onto their events. judgements must be in the same
// order as events, which is what judge.Engine.Judge returns.
func Partition(runID, videoID string, events []*event.ChatEvent, judgements []judge.Judgement) (*ResultSet, error) {
	if len(events) != len(judgements) {
		return nil, fmt.Errorf("result: %d events but %d judgements", len(events), len(judgements))
	}
	rs := &ResultSet{
		RunID:        runID,
		VideoID:      videoID,
		All:          make([]map[string]interface{}, 0, len(events)),
		OK:           []Record{},
		NG:           []Record{},
		Warn:         []Record{},
		Unclassified: []Record{},
		NGChannels:   []string{},
	}
	seen := make(map[string]struct{})

	for i, ev := range events {
		j := judgements[i]
		if j.EventID != ev.ID {
			return nil, fmt.Errorf("result: judgement %d is for event %q, expected %q", i, j.EventID, ev.ID)
		}
		rs.All = append(rs.All, annotate(ev, j))
		rec := Record{
			ID:             ev.ID,
			ChannelID:      ev.ChannelID,
			DisplayName:    ev.DisplayName,
			DisplayMessage: ev.DisplayMessage,
		}
		switch j.Verdict {
		case judge.OK:
			rs.OK = append(rs.OK, rec)
		case judge.NG:
			rs.NG = append(rs.NG, rec)
			if _, dup := seen[j.Channel]; !dup && j.Channel != "" {
				seen[j.Channel] = struct{}{}
				rs.NGChannels = append(rs.NGChannels, j.Channel)
			}
		case judge.Warn:
			rs.Warn = append(rs.Warn, rec)
		case judge.Unclassified:
			rs.Unclassified = append(rs.Unclassified, rec)
		default:
			return nil, fmt.Errorf("result: event %q has unknown verdict %q", ev.ID, j.Verdict)
		}
	}

	rs.Counts = Counts{
		Total:        len(rs.All),
		OK:           len(rs.OK),
		NG:           len(rs.NG),
		Warn:         len(rs.Warn),
		Unclassified: len(rs.Unclassified),
	}
	return rs, nil
}

// annotate returns a shallow copy of the raw record with verdict fields attached.
func annotate(ev *event.ChatEvent, j judge.Judgement) map[string]interface{} {
	out := make(map[string]interface{}, len(ev.Raw)+3)
	for k, v := range ev.Raw {
		out[k] = v
	}
	if len(ev.Raw) == 0 {
		out["id"] = ev.ID
	}
	out[FieldVerdict] = string(j.Verdict)
	out[FieldNGFlag] = j.Verdict == judge.NG
	if j.Verdict != judge.OK {
		out[FieldNGInfo] = j.Evidence
	}
	return out
}
