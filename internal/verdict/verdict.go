// Package verdict turns a released analysis into the verdict-stream events
// described by spec.md §6: Spam-New/Update/Remove, Phishing-New/Remove and
// Finalized.
package verdict

import (
	"tokenwatch/internal/analyzer"
	"tokenwatch/internal/detect"
	"tokenwatch/internal/orchestrator"
)

// Kind names one of the §6 verdict-stream event types.
type Kind string

const (
	KindSpamNew        Kind = "spam-new"
	KindSpamUpdate     Kind = "spam-update"
	KindSpamRemove     Kind = "spam-remove"
	KindPhishingNew    Kind = "phishing-new"
	KindPhishingRemove Kind = "phishing-remove"
	KindFinalized      Kind = "finalized"
)

// Event is one emitted verdict-stream record.
type Event struct {
	Kind       Kind
	Token      string
	Analysis   analyzer.Analysis `json:",omitempty"`
	Confidence float64           `json:",omitempty"`
	Indicators []detect.Key      `json:",omitempty"`
	Added      []detect.Key      `json:",omitempty"`
	Removed    []detect.Key      `json:",omitempty"`
	URLs       []string          `json:",omitempty"`
}

// FromReleased derives the verdict-stream events for one orchestrator
// release, per spec.md §6. Order is: spam transition, phishing transition,
// finalized marker.
func FromReleased(r orchestrator.Released) []Event {
	var events []Event

	isUpdated, _ := analyzer.Compare(r.Analysis, r.Prev, r.Interp, r.PrevInterp)
	switch {
	case r.Interp.IsSpam && !r.PrevInterp.IsSpam:
		events = append(events, Event{
			Kind: KindSpamNew, Token: r.Token.Address, Analysis: r.Analysis,
			Confidence: r.Interp.Confidence, Indicators: detectedKeys(r.Analysis),
		})
	case r.Interp.IsSpam && r.PrevInterp.IsSpam && isUpdated:
		added, removed := diffKeys(r.Prev, r.Analysis)
		events = append(events, Event{
			Kind: KindSpamUpdate, Token: r.Token.Address, Analysis: r.Analysis,
			Confidence: r.Interp.Confidence, Added: added, Removed: removed,
		})
	case !r.Interp.IsSpam && r.PrevInterp.IsSpam:
		events = append(events, Event{Kind: KindSpamRemove, Token: r.Token.Address})
	}

	switch {
	case r.Interp.IsPhishing && !r.PrevInterp.IsPhishing:
		events = append(events, Event{Kind: KindPhishingNew, Token: r.Token.Address, URLs: phishingURLs(r.Analysis)})
	case !r.Interp.IsPhishing && r.PrevInterp.IsPhishing:
		events = append(events, Event{Kind: KindPhishingRemove, Token: r.Token.Address})
	}

	if r.Interp.IsFinalized {
		events = append(events, Event{Kind: KindFinalized, Token: r.Token.Address})
	}

	return events
}

func detectedKeys(a analyzer.Analysis) []detect.Key {
	var out []detect.Key
	for _, k := range detect.Order {
		if short, ok := a[k]; ok && short.Detected {
			out = append(out, k)
		}
	}
	return out
}

func diffKeys(prev, curr analyzer.Analysis) (added, removed []detect.Key) {
	for _, k := range detect.Order {
		prevDetected := prev != nil && prev[k].Detected
		currDetected := curr != nil && curr[k].Detected
		switch {
		case currDetected && !prevDetected:
			added = append(added, k)
		case prevDetected && !currDetected:
			removed = append(removed, k)
		}
	}
	return added, removed
}

func phishingURLs(a analyzer.Analysis) []string {
	short, ok := a[detect.KeyPhishingMetadata]
	if !ok || !short.Detected {
		return nil
	}
	meta, ok := short.Metadata.(map[string]any)
	if !ok {
		return nil
	}
	url, ok := meta["url"].(string)
	if !ok || url == "" {
		return nil
	}
	return []string{url}
}
