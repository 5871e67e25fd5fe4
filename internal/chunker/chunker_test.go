package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"ragbot/internal/models"
)

func sampleText() string {
	var b strings.Builder
	for i := 0; i < 600; i++ {
		b.WriteString(fmt.Sprintf("word%d", i))
		switch {
		case i%50 == 49:
			b.WriteString(".\n\n")
		case i%7 == 6:
			b.WriteString(". ")
		default:
			b.WriteString(" ")
		}
	}
	return b.String()
}

func TestSplitShortContentSingleChunk(t *testing.T) {
	c := New(1000, 200)
	chunks := c.Split([]models.TextBlock{{Content: "  hello world  ", Source: "a.pdf"}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "hello world" || chunks[0].Source != "a.pdf" {
		t.Fatalf("unexpected chunk: %+v", chunks[0])
	}
}

func TestSplitEmptyBlocks(t *testing.T) {
	c := New(1000, 200)
	if chunks := c.Split([]models.TextBlock{{Content: " \n\t ", Source: "a.pdf"}}); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
	if chunks := c.Split(nil); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplitRespectsSizeAndOverlap(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{
		{1000, 200},
		{300, 50},
		{120, 0},
		{64, 63},
	} {
		c := New(tc.size, tc.overlap)
		chunks := c.Split([]models.TextBlock{{Content: sampleText(), Source: "doc.pdf"}})
		if len(chunks) < 2 {
			t.Fatalf("size %d: expected multiple chunks, got %d", tc.size, len(chunks))
		}

		overlap := c.Overlap()
		for i, ch := range chunks {
			runes := []rune(ch.Content)
			if len(runes) > c.Size() {
				t.Fatalf("size %d: chunk %d has %d runes", tc.size, i, len(runes))
			}
			if ch.Source != "doc.pdf" || ch.Index != i {
				t.Fatalf("size %d: chunk %d has wrong metadata: %+v", tc.size, i, ch)
			}
			if i == len(chunks)-1 {
				continue
			}
			next := []rune(chunks[i+1].Content)
			tail := string(runes[len(runes)-overlap:])
			head := string(next[:overlap])
			if tail != head {
				t.Fatalf("size %d: chunk %d does not overlap successor by %d: %q vs %q", tc.size, i, overlap, tail, head)
			}
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	blocks := []models.TextBlock{
		{Content: sampleText(), Source: "one.pdf"},
		{Content: strings.Repeat("lorem ipsum dolor ", 200), Source: "two.pdf"},
	}
	first := New(500, 100).Split(blocks)
	second := New(500, 100).Split(blocks)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical chunk sequences")
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	content := strings.Repeat("a", 70) + "\n\n" + strings.Repeat("b", 70)
	chunks := New(100, 10).Split([]models.TextBlock{{Content: content, Source: "p.txt"}})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != strings.Repeat("a", 70)+"\n\n" {
		t.Fatalf("expected first chunk to end at paragraph break, got %q", chunks[0].Content)
	}
}

func TestSplitPrefersSentenceOverWord(t *testing.T) {
	content := strings.Repeat("x", 55) + ". " + strings.Repeat("y", 20) + " " + strings.Repeat("z", 40)
	chunks := New(100, 10).Split([]models.TextBlock{{Content: content, Source: "s.txt"}})
	if !strings.HasSuffix(chunks[0].Content, ". ") {
		t.Fatalf("expected first chunk to end at sentence break, got %q", chunks[0].Content)
	}
}

func TestSplitHardCut(t *testing.T) {
	chunks := New(100, 20).Split([]models.TextBlock{{Content: strings.Repeat("a", 250), Source: "h.txt"}})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := []int{100, 100, 90}
	for i, ch := range chunks {
		if len(ch.Content) != want[i] {
			t.Errorf("chunk %d length = %d, want %d", i, len(ch.Content), want[i])
		}
	}
}

func TestSplitMultibyte(t *testing.T) {
	chunks := New(100, 10).Split([]models.TextBlock{{Content: strings.Repeat("é", 150), Source: "u.txt"}})
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Content) {
			t.Fatalf("chunk %d is not valid utf-8", i)
		}
		if n := utf8.RuneCountInString(ch.Content); n > 100 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
	}
}

func TestSplitIndexesRestartPerBlock(t *testing.T) {
	chunks := New(100, 10).Split([]models.TextBlock{
		{Content: strings.Repeat("a", 150), Source: "one.txt"},
		{Content: strings.Repeat("b", 150), Source: "two.txt"},
	})
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	if chunks[2].Source != "two.txt" || chunks[2].Index != 0 {
		t.Fatalf("unexpected third chunk: %+v", chunks[2])
	}
}

func TestNewClampsConfiguration(t *testing.T) {
	c := New(0, -5)
	if c.Size() != 1000 || c.Overlap() != 0 {
		t.Fatalf("unexpected defaults: %d/%d", c.Size(), c.Overlap())
	}
	c = New(100, 150)
	if c.Overlap() != 50 {
		t.Fatalf("expected overlap clamped to 50, got %d", c.Overlap())
	}
}
