package pretok

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitGPT2Contraction(t *testing.T) {
	got := Split("don't", Resolve("gpt2"))
	want := []string{"don", "'t"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitGPT2DigitCap(t *testing.T) {
	got := Split("12345", Resolve("gpt2"))
	want := []string{"123", "45"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitUncappedDigitsStayTogether(t *testing.T) {
	got := Split("12345", Resolve("deepseek-llm"))
	want := []string{"12345"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitWordWithPunctuationPrefix(t *testing.T) {
	got := Split("-hello", Resolve("gpt2"))
	want := []string{"-hello"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitTrailingWhitespaceBacksOff(t *testing.T) {
	// "a  b": the run of two spaces before "b" should NOT fully attach to
	// "b" — \s+(?!\S) backs off one space, leaving a single leading space
	// consumed by the punctuation/word branch of the next fragment.
	got := Split("a  b", Resolve("gpt2"))
	if len(got) == 0 {
		t.Fatal("expected at least one fragment")
	}
	joined := ""
	for _, f := range got {
		joined += f
	}
	if joined != "a  b" {
		t.Fatalf("fragments must reconstruct the input losslessly: got %q from %v", joined, got)
	}
	want := []string{"a", " ", " b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitNewlineRun(t *testing.T) {
	got := Split("a\n\nb", Resolve("gpt2"))
	joined := ""
	for _, f := range got {
		joined += f
	}
	if joined != "a\n\nb" {
		t.Fatalf("fragments must reconstruct the input losslessly: got %q from %v", joined, got)
	}
}

func TestResolveUnknownKindFallsBackToGPT2(t *testing.T) {
	d := Resolve("totally-unknown-kind")
	if d != Resolve("gpt2") {
		t.Fatalf("unknown pre kind should fall back to gpt2's descriptor")
	}
}

func TestResolveAlias(t *testing.T) {
	if Resolve("llama-bpe") != Resolve("llama3") {
		t.Fatalf("llama-bpe should alias to llama3")
	}
	if Resolve("qwen") != Resolve("qwen2") {
		t.Fatalf("qwen should alias to qwen2")
	}
}

func TestSplitNeverLosesInput(t *testing.T) {
	inputs := []string{
		"",
		"Hello, World! 123",
		"  leading spaces",
		"trailing spaces  ",
		"mixed\r\nnewlines\nhere",
		"日本語のテキスト",
		"I'd've said don't",
	}
	for _, in := range inputs {
		got := Split(in, Resolve("llama3"))
		joined := ""
		for _, f := range got {
			joined += f
		}
		if joined != in {
			t.Errorf("Split(%q) fragments join to %q, want %q", in, joined, in)
		}
	}
}
