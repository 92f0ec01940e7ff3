package subtitle

import (
	"testing"
	"time"
)

func testBase() RunStyle {
	return StyleRun(DefaultStyle())
}

func TestParseTextRuns(t *testing.T) {
	base := testBase()
	layout := ParseText(`Hello {\b1\c&H0000FF&}bold red{\r} plain\Nnext`, base, nil, 0)

	if len(layout.Runs) != 5 {
		t.Fatalf("expected 5 runs, got %d: %+v", len(layout.Runs), layout.Runs)
	}

	if layout.Runs[0].Text != "Hello " || layout.Runs[0].Style != base {
		t.Errorf("run 0: unexpected %+v", layout.Runs[0])
	}

	bold := layout.Runs[1]
	if bold.Text != "bold red" || !bold.Style.Bold {
		t.Errorf("run 1: expected bold text, got %+v", bold)
	}
	if bold.Style.Primary != (Color{R: 0xFF}) {
		t.Errorf("run 1: expected red, got %+v", bold.Style.Primary)
	}

	if layout.Runs[2].Style != base {
		t.Errorf("run 2: \\r should reset to base, got %+v", layout.Runs[2].Style)
	}
	if !layout.Runs[3].Break {
		t.Errorf("run 3: expected hard break")
	}
	if layout.Runs[4].Text != "next" {
		t.Errorf("run 4: got %q", layout.Runs[4].Text)
	}
}

func TestParseTextOverrides(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, ov Overrides)
	}{
		{
			name: "first pos wins",
			text: `{\pos(10,20)\pos(30,40)}x`,
			check: func(t *testing.T, ov Overrides) {
				if !ov.HasPos || ov.PosX != 10 || ov.PosY != 20 {
					t.Errorf("got %+v", ov)
				}
			},
		},
		{
			name: "move with times",
			text: `{\move(0,0,100,50,200,800)}x`,
			check: func(t *testing.T, ov Overrides) {
				want := Move{X2: 100, Y2: 50, T1: 200 * time.Millisecond, T2: 800 * time.Millisecond}
				if !ov.HasMove || ov.Move != want {
					t.Errorf("got %+v", ov.Move)
				}
			},
		},
		{
			name: "pos blocks later move",
			text: `{\pos(1,2)\move(0,0,100,50)}x`,
			check: func(t *testing.T, ov Overrides) {
				if ov.HasMove {
					t.Errorf("move should be ignored after pos")
				}
			},
		},
		{
			name: "alignment",
			text: `{\an7}x{\an3}`,
			check: func(t *testing.T, ov Overrides) {
				if ov.Alignment != 7 {
					t.Errorf("alignment = %d, want 7", ov.Alignment)
				}
			},
		},
		{
			name: "legacy alignment",
			text: `{\a10}x`,
			check: func(t *testing.T, ov Overrides) {
				if ov.Alignment != 5 {
					t.Errorf("alignment = %d, want 5", ov.Alignment)
				}
			},
		},
		{
			name: "fade",
			text: `{\fad(300,500)}x`,
			check: func(t *testing.T, ov Overrides) {
				if ov.FadeIn != 300*time.Millisecond || ov.FadeOut != 500*time.Millisecond {
					t.Errorf("got %+v", ov)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := ParseText(tt.text, testBase(), nil, 0)
			tt.check(t, layout.Overrides)
		})
	}
}

func TestParseTextStyleTags(t *testing.T) {
	base := testBase()

	layout := ParseText(`{\fnGo Mono\fs40\fscx150\fsp2\bord0\shad3\alpha&H80&\3c&HFF0000&\i1\u1\s1}x`, base, nil, 0)
	if len(layout.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(layout.Runs))
	}
	s := layout.Runs[0].Style
	if s.FontName != "Go Mono" || s.FontSize != 40 || s.ScaleX != 150 || s.Spacing != 2 {
		t.Errorf("font fields not applied: %+v", s)
	}
	if s.Border != 0 || s.Shadow != 3 {
		t.Errorf("border/shadow not applied: %+v", s)
	}
	if s.Primary.A != 0x80 || s.Back.A != 0x80 {
		t.Errorf("\\alpha should apply to every colour: %+v", s)
	}
	if s.Outline != (Color{B: 0xFF, A: 0x80}) {
		t.Errorf("\\3c should keep alpha: %+v", s.Outline)
	}
	if !s.Italic || !s.Underline || !s.StrikeOut {
		t.Errorf("flags not applied: %+v", s)
	}

	layout = ParseText(`{\fs40}a{\fs}b`, base, nil, 0)
	if len(layout.Runs) != 2 || layout.Runs[1].Style.FontSize != base.FontSize {
		t.Errorf("empty \\fs should restore base size: %+v", layout.Runs)
	}
}

func TestParseTextNamedReset(t *testing.T) {
	sign := StyleRun(Style{FontName: "Sign Font", FontSize: 50, ScaleX: 100, ScaleY: 100})
	lookup := func(name string) (RunStyle, bool) {
		if name == "Sign" {
			return sign, true
		}
		return RunStyle{}, false
	}

	layout := ParseText(`a{\rSign}b{\rMissing}c`, testBase(), lookup, 0)
	if len(layout.Runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(layout.Runs))
	}
	if layout.Runs[1].Style != sign {
		t.Errorf("\\rSign should switch style, got %+v", layout.Runs[1].Style)
	}
	if layout.Runs[2].Style != testBase() {
		t.Errorf("unknown \\r target should reset to base")
	}
}

func TestParseTextEscapesAndComments(t *testing.T) {
	tests := []struct {
		input     string
		wrapStyle int
		want      string
	}{
		{`plain {comment only} text`, 0, "plain  text"},
		{`soft\nbreak`, 0, "soft break"},
		{`soft\nbreak`, 2, "soft\nbreak"},
		{`hard\hspace`, 0, "hard\u00a0space"},
		{`literal \{brace\}`, 0, "literal {brace}"},
		{`{\p1}m 0 0 l 10 10{\p0}after`, 0, "after"},
		{`{\t(\fs20\c&HFF&)}animated`, 0, "animated"},
		{`unterminated {\b1`, 0, `unterminated {\b1`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			layout := ParseText(tt.input, testBase(), nil, tt.wrapStyle)
			got := ""
			for _, run := range layout.Runs {
				if run.Break {
					got += "\n"
					continue
				}
				got += run.Text
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input string
		want  Color
		ok    bool
	}{
		{"&H00FFFFFF", Color{R: 0xFF, G: 0xFF, B: 0xFF}, true},
		{"&H80FF0000", Color{B: 0xFF, A: 0x80}, true},
		{"&H0000FF&", Color{R: 0xFF}, true},
		{"&hff00&", Color{G: 0xFF}, true},
		{"255", Color{R: 0xFF}, true},
		{"0x00FF00", Color{G: 0xFF}, true},
		{"&Hzz", Color{}, false},
		{"", Color{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseColor(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseColor(%q) = %+v, %v; want %+v, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}

	if got := (Color{R: 1, G: 2, B: 3, A: 4}).String(); got != "&H04030201" {
		t.Errorf("String() = %q", got)
	}
	if got := (Color{A: 0x40}).NRGBA().A; got != 0xBF {
		t.Errorf("NRGBA alpha = %#x, want 0xbf", got)
	}
}

func TestEmbeddedFontRoundTrip(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i * 7)
	}

	for _, n := range []int{0, 1, 2, 3, 1000} {
		lines := encodeEmbeddedFont(data[:n])
		joined := ""
		for _, l := range lines {
			if len(l) > 80 {
				t.Fatalf("line longer than 80 columns: %d", len(l))
			}
			joined += l
		}
		got := decodeEmbeddedFont(joined)
		if string(got) != string(data[:n]) {
			t.Errorf("round trip of %d bytes failed", n)
		}
	}
}
