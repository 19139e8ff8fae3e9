package annotate

import "testing"

func TestIsValidPhrase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		phrase []Token
		want   bool
	}{
		{
			name: "subject and verb present",
			phrase: []Token{
				{Text: "she", POS: "PRON", Dep: "nsubj"},
				{Text: "runs", POS: "VERB"},
			},
			want: true,
		},
		{
			name: "verb only, no subject",
			phrase: []Token{
				{Text: "running", POS: "VERB"},
				{Text: "fast", POS: "NOUN"},
			},
			want: false,
		},
		{
			name:   "empty phrase",
			phrase: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		if got := isValidPhrase(tt.phrase); got != tt.want {
			t.Errorf("%s: isValidPhrase() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSplitByComma_SplitsOnlyAtValidClauseBoundary(t *testing.T) {
	t.Parallel()

	// "she runs fast every single morning , he sleeps late every single day":
	// enough non-punct tokens either side of the comma, with a subject+verb
	// on the right, so the comma should be treated as a clause boundary.
	tokens := []Token{
		{Text: "she", POS: "PRON", Dep: "nsubj"},
		{Text: "runs", POS: "VERB"},
		{Text: "fast", POS: "ADV"},
		{Text: "every", POS: "DET"},
		{Text: "single", POS: "ADJ"},
		{Text: "morning", POS: "NOUN"},
		{Text: ",", POS: "PUNCT", IsPunct: true},
		{Text: "he", POS: "PRON", Dep: "nsubj"},
		{Text: "sleeps", POS: "VERB"},
		{Text: "late", POS: "ADV"},
		{Text: "every", POS: "DET"},
		{Text: "single", POS: "ADJ"},
		{Text: "day", POS: "NOUN"},
	}

	got := splitByComma(tokens, " ")
	if len(got) != 2 {
		t.Fatalf("splitByComma: got %d parts, want 2: %#v", len(got), got)
	}
	if got[0] != "she runs fast every single morning" {
		t.Errorf("part 0 = %q", got[0])
	}
	if got[1] != "he sleeps late every single day" {
		t.Errorf("part 1 = %q", got[1])
	}
}

func TestSplitByComma_KeepsShortClauseTogether(t *testing.T) {
	t.Parallel()

	// Too few words either side of the comma (<=3) to count as a clause
	// boundary, so no split should occur.
	tokens := []Token{
		{Text: "yes", POS: "INTJ"},
		{Text: ",", POS: "PUNCT", IsPunct: true},
		{Text: "indeed", POS: "ADV"},
	}

	got := splitByComma(tokens, " ")
	if len(got) != 1 {
		t.Fatalf("splitByComma: got %d parts, want 1 (no split): %#v", len(got), got)
	}
	if got[0] != "yes, indeed" {
		t.Errorf("part 0 = %q", got[0])
	}
}

func TestAnalyzeConnector_OnlySplitsGerman(t *testing.T) {
	t.Parallel()

	tokens := []Token{{Text: "weil", POS: "SCONJ", Dep: "mark"}}

	if analyzeConnector("en", tokens, 0) {
		t.Errorf("analyzeConnector(\"en\", ...) = true, want false for non-German text")
	}
	if !analyzeConnector("de", tokens, 0) {
		t.Errorf("analyzeConnector(\"de\", ...) = false, want true for a German connector as mark")
	}
}

func TestAnalyzeConnector_SkipsDeterminerUseOfConnector(t *testing.T) {
	t.Parallel()

	// "welche" used as a determiner modifying a following noun head should
	// not be treated as a subordinating connector.
	tokens := []Token{
		{Text: "welche", POS: "DET", Dep: "det", Head: 1},
		{Text: "Farbe", POS: "NOUN"},
	}

	if analyzeConnector("de", tokens, 0) {
		t.Errorf("analyzeConnector: got true for determiner use of connector, want false")
	}
}

func TestHeadIsNoun_BoundsChecked(t *testing.T) {
	t.Parallel()

	tokens := []Token{{Text: "x", POS: "NOUN"}}
	if headIsNoun(tokens, -1) {
		t.Errorf("headIsNoun(-1) = true, want false")
	}
	if headIsNoun(tokens, 5) {
		t.Errorf("headIsNoun(5) = true, want false (out of range)")
	}
	if !headIsNoun(tokens, 0) {
		t.Errorf("headIsNoun(0) = false, want true")
	}
}

func TestSentenceParts_FallsBackToWholeTextWithoutSentenceSpans(t *testing.T) {
	t.Parallel()

	doc := &Doc{Text: "  just one blob of text  "}
	parts := sentenceParts(doc, "en")
	if len(parts) != 1 || parts[0] != "just one blob of text" {
		t.Errorf("sentenceParts = %#v, want one trimmed whole-text part", parts)
	}
}

func TestSentenceParts_OmitsJoinerBeforePunctuation(t *testing.T) {
	t.Parallel()

	doc := &Doc{
		Tokens: []Token{
			{Text: "Hello", POS: "INTJ"},
			{Text: "world", POS: "NOUN"},
			{Text: ".", POS: "PUNCT", IsPunct: true},
		},
		Sentences: []SentenceSpan{{Start: 0, End: 3}},
	}
	parts := sentenceParts(doc, "en")
	if len(parts) != 1 || parts[0] != "Hello world." {
		t.Errorf("sentenceParts = %#v, want [%q]", parts, "Hello world.")
	}
}
