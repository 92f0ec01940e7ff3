package render

import (
	"image"
	"image/color"
	"reflect"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/gomono"
)

func makeWords(widths ...float64) []word {
	words := make([]word, len(widths))
	for i, w := range widths {
		words[i] = word{start: i, end: i + 1, width: w, gap: 1}
	}
	return words
}

func TestGreedyBreaks(t *testing.T) {
	tests := []struct {
		name   string
		widths []float64
		max    float64
		want   []int
	}{
		{"fits", []float64{3, 3, 3}, 20, []int{0}},
		{"two lines", []float64{5, 5, 5}, 11, []int{0, 2}},
		{"every word", []float64{5, 5, 5}, 5, []int{0, 1, 2}},
		{"overlong word keeps its line", []float64{30, 2}, 10, []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := greedyBreaks(makeWords(tt.widths...), tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBalancedBreaks(t *testing.T) {
	// greedy puts four words on the first line and one on the second
	words := makeWords(4, 4, 4, 4, 4)

	if got := greedyBreaks(words, 20); !reflect.DeepEqual(got, []int{0, 4}) {
		t.Fatalf("greedy = %v", got)
	}
	if got := balancedBreaks(words, 20, false); !reflect.DeepEqual(got, []int{0, 3}) {
		t.Errorf("top-wide balanced = %v, want [0 3]", got)
	}
	if got := balancedBreaks(words, 20, true); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("bottom-wide balanced = %v, want [0 2]", got)
	}
	if got := balancedBreaks(words, 100, false); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("single line = %v", got)
	}
}

func TestWrapParagraphDropsBreakSpaces(t *testing.T) {
	items := []glyphItem{
		{r: 'a', adv: 5}, {r: ' ', adv: 2, space: true},
		{r: 'b', adv: 5}, {r: ' ', adv: 2, space: true},
		{r: 'c', adv: 5},
	}

	lines := wrapParagraph(items, 8, 1)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []rune{'a', 'b', 'c'} {
		if len(lines[i]) != 1 || lines[i][0].r != want {
			t.Errorf("line %d = %+v", i, lines[i])
		}
	}

	if lines := wrapParagraph(items, 8, 2); len(lines) != 1 || len(lines[0]) != 5 {
		t.Errorf("wrap style 2 should keep one line")
	}
}

func TestDilate(t *testing.T) {
	src := image.NewAlpha(image.Rect(0, 0, 1, 1))
	src.Pix[0] = 0xFF

	dst, pad := dilate(src, 2)
	if pad != 2 {
		t.Fatalf("pad = %d, want 2", pad)
	}
	if dst.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Fatalf("bounds = %v", dst.Bounds())
	}
	if dst.AlphaAt(2, 2).A != 0xFF || dst.AlphaAt(3, 2).A != 0xFF {
		t.Errorf("disc interior should be opaque")
	}
	if dst.AlphaAt(0, 0).A != 0 {
		t.Errorf("corner beyond the radius should stay empty, got %d", dst.AlphaAt(0, 0).A)
	}

	if same, pad := dilate(src, 0); same != src || pad != 0 {
		t.Errorf("zero radius should return the input")
	}
}

func TestCrop(t *testing.T) {
	src := image.NewAlpha(image.Rect(0, 0, 10, 10))
	src.SetAlpha(3, 4, color.Alpha{A: 0x80})
	src.SetAlpha(5, 6, color.Alpha{A: 0xFF})

	out, at, ok := crop(src)
	if !ok {
		t.Fatalf("expected content")
	}
	if at != image.Pt(3, 4) || out.Bounds() != image.Rect(0, 0, 3, 3) {
		t.Errorf("crop = %v at %v", out.Bounds(), at)
	}
	if out.AlphaAt(2, 2).A != 0xFF {
		t.Errorf("pixel not copied")
	}

	if _, _, ok := crop(image.NewAlpha(image.Rect(0, 0, 4, 4))); ok {
		t.Errorf("empty bitmap should report no content")
	}
}

func TestLayoutCacheBounded(t *testing.T) {
	r := New(WithCacheSize(2))
	data := testScript(0, nil,
		dialogue(0, "0:00:00.00", "0:00:05.00", "one"),
		dialogue(0, "0:00:00.00", "0:00:05.00", "two"),
	)
	if err := r.Init(data); err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, h := range []int{360, 720} {
		if _, err := r.Render(time.Second, 640, h); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	if n := r.cache.Len(); n != 2 {
		t.Errorf("cache should hold at most 2 layouts, has %d", n)
	}

	if err := r.AddFont("mono.ttf", gomono.TTF); err != nil {
		t.Fatalf("AddFont: %v", err)
	}
	if n := r.cache.Len(); n != 0 {
		t.Errorf("AddFont should purge cached layouts, %d left", n)
	}
}

func TestDetectChange(t *testing.T) {
	a := image.NewAlpha(image.Rect(0, 0, 1, 1))
	b := image.NewAlpha(image.Rect(0, 0, 1, 1))
	base := []Image{{Bitmap: a, X: 1, Y: 1}}

	tests := []struct {
		name string
		cur  []Image
		want Change
	}{
		{"same", []Image{{Bitmap: a, X: 1, Y: 1}}, ChangeNone},
		{"moved", []Image{{Bitmap: a, X: 2, Y: 1}}, ChangePosition},
		{"new bitmap", []Image{{Bitmap: b, X: 1, Y: 1}}, ChangeContent},
		{"count", nil, ChangeContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectChange(base, tt.cur); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
