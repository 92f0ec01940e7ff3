package subtitle

import (
	"sort"
	"strings"
	"time"
)

// [Script Info] values the renderer cares about
type ScriptInfo struct {
	Title                 string
	ScriptType            string
	PlayResX              int
	PlayResY              int
	WrapStyle             int
	ScaledBorderAndShadow bool
	Collisions            string
}

// one [V4+ Styles] row
type Style struct {
	Name            string
	FontName        string
	FontSize        float64
	PrimaryColour   Color
	SecondaryColour Color
	OutlineColour   Color
	BackColour      Color
	Bold            bool
	Italic          bool
	Underline       bool
	StrikeOut       bool
	ScaleX          float64
	ScaleY          float64
	Spacing         float64
	Angle           float64
	BorderStyle     int
	Outline         float64
	Shadow          float64
	// numpad layout, 1 = bottom left, 9 = top right
	Alignment int
	MarginL   int
	MarginR   int
	MarginV   int
	Encoding  int
}

// one Dialogue line
type Event struct {
	ReadOrder int
	Layer     int
	Start     time.Duration
	End       time.Duration
	Style     string
	Name      string
	MarginL   int
	MarginR   int
	MarginV   int
	Effect    string
	Text      string
}

// font carried in the [Fonts] section
type EmbeddedFont struct {
	Name string
	Data []byte
}

// parsed subtitle track ready for rendering
type Track struct {
	Format Format
	Info   ScriptInfo
	Styles []Style
	Events []Event
	Fonts  []EmbeddedFont
}

// style used when an event names nothing that exists
func DefaultStyle() Style {
	return Style{
		Name:            "Default",
		FontName:        "Arial",
		FontSize:        18,
		PrimaryColour:   Color{R: 0xFF, G: 0xFF, B: 0xFF},
		SecondaryColour: Color{R: 0xFF, G: 0xFF},
		OutlineColour:   Color{},
		BackColour:      Color{},
		ScaleX:          100,
		ScaleY:          100,
		BorderStyle:     1,
		Outline:         2,
		Shadow:          2,
		Alignment:       2,
		MarginL:         20,
		MarginR:         20,
		MarginV:         20,
		Encoding:        1,
	}
}

func newTrack(format Format) *Track {
	return &Track{
		Format: format,
		Info: ScriptInfo{
			ScriptType:            "v4.00+",
			ScaledBorderAndShadow: true,
			Collisions:            "Normal",
		},
	}
}

// Style looks up a style by name. Lookup is case-insensitive and ignores the
// leading '*' some authoring tools add; unknown names resolve to the
// "Default" style or, failing that, the first style of the track.
func (t *Track) Style(name string) Style {
	name = strings.TrimPrefix(strings.TrimSpace(name), "*")
	for i := len(t.Styles) - 1; i >= 0; i-- {
		if strings.EqualFold(t.Styles[i].Name, name) {
			return t.Styles[i]
		}
	}
	for _, s := range t.Styles {
		if strings.EqualFold(s.Name, "Default") {
			return s
		}
	}
	if len(t.Styles) > 0 {
		return t.Styles[0]
	}
	return DefaultStyle()
}

// HasStyle reports whether a style with the exact name exists.
func (t *Track) HasStyle(name string) bool {
	name = strings.TrimPrefix(strings.TrimSpace(name), "*")
	for _, s := range t.Styles {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// Active returns the events visible at the given time, ordered by layer and
// then by read order.
func (t *Track) Active(at time.Duration) []Event {
	var active []Event
	for _, ev := range t.Events {
		if ev.Start <= at && at < ev.End {
			active = append(active, ev)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Layer != active[j].Layer {
			return active[i].Layer < active[j].Layer
		}
		return active[i].ReadOrder < active[j].ReadOrder
	})
	return active
}

// Duration is the end time of the last event.
func (t *Track) Duration() time.Duration {
	var end time.Duration
	for _, ev := range t.Events {
		if ev.End > end {
			end = ev.End
		}
	}
	return end
}

// Subtitle flattens the track into plain entries with override tags removed.
func (t *Track) Subtitle() *Subtitle {
	events := append([]Event(nil), t.Events...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})

	entries := make([]Entry, 0, len(events))
	for i, ev := range events {
		entries = append(entries, Entry{
			Index:     i + 1,
			StartTime: ev.Start,
			EndTime:   ev.End,
			Text:      PlainText(ev.Text),
		})
	}

	return &Subtitle{
		Entries: entries,
		Format:  string(t.Format),
	}
}

// fills PlayResX/PlayResY the same way players do when a script omits them
func (t *Track) normalizePlayRes() {
	switch {
	case t.Info.PlayResX <= 0 && t.Info.PlayResY <= 0:
		t.Info.PlayResX = 384
		t.Info.PlayResY = 288
	case t.Info.PlayResY <= 0:
		if t.Info.PlayResX == 1280 {
			t.Info.PlayResY = 1024
		} else {
			t.Info.PlayResY = t.Info.PlayResX * 3 / 4
		}
	case t.Info.PlayResX <= 0:
		if t.Info.PlayResY == 1024 {
			t.Info.PlayResX = 1280
		} else {
			t.Info.PlayResX = t.Info.PlayResY * 4 / 3
		}
	}
}
