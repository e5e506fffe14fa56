package translation

import "testing"

func TestSplitText(t *testing.T) {
	got := SplitText("你好。我是谁？他说：“好的。”然后走了")
	want := []string{"你好。", "我是谁？", "他说：“好的。”", "然后走了"}
	if len(got) != len(want) {
		t.Fatalf("SplitText = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentencesInterpolatesTimes(t *testing.T) {
	records := []Record{{Start: 1, End: 3, Speaker: "S0", Text: "Hello. Bye.", Translation: "你好。再见", Outcome: OutcomeAccepted}}
	out := SplitSentences(records)
	if len(out) != 2 {
		t.Fatalf("expected 2 sentences, got %+v", out)
	}
	if out[0].Start != 1 || out[0].End != 2.2 {
		t.Fatalf("first sentence span = %v-%v", out[0].Start, out[0].End)
	}
	if out[1].Start != 2.2 || out[1].End != 3 {
		t.Fatalf("second sentence span = %v-%v", out[1].Start, out[1].End)
	}
	if out[1].Speaker != "S0" || out[1].Text != "Hello. Bye." || out[1].Outcome != OutcomeAccepted {
		t.Fatalf("metadata not carried: %+v", out[1])
	}
}

func TestSplitSentencesKeepsPlaceholderSpan(t *testing.T) {
	out := SplitSentences([]Record{{Start: 0.12345, End: 2.00049, Text: "x", Translation: "  "}})
	if len(out) != 1 {
		t.Fatalf("expected one record, got %d", len(out))
	}
	if out[0].Translation != Placeholder || out[0].Outcome != OutcomeUntranslated {
		t.Fatalf("expected placeholder, got %+v", out[0])
	}
	if out[0].Start != 0.123 || out[0].End != 2 {
		t.Fatalf("unexpected rounding %v-%v", out[0].Start, out[0].End)
	}
}
