package normalize

import "testing"

// TestFixtureFromSpec reproduces spec §8 scenario 3 verbatim.
func TestFixtureFromSpec(t *testing.T) {
	in := "Hello\n\n\n\n\nworld.\nSee also\nignored"
	want := "Hello\n\nworld."
	if got := Normalize(in); got != want {
		t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
	}
}

func TestIdempotence(t *testing.T) {
	cases := []string{
		"Hello\n\n\n\n\nworld.\nSee also\nignored",
		"Plain text with no sections.",
		"thumb|a caption\nReal content\nscope=\"row\"\nMore content",
		"| table cell\n! header\n|-\nmore\n|}",
		"Em–dash and curly 'quotes' and (, weirdness ; )",
		"",
		"\n\n\n\n\n\n\n",
	}
	for _, s := range cases {
		once := Normalize(s)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: once=%q twice=%q", s, once, twice)
		}
	}
}

func TestStripsTrailingHeadingsInOrder(t *testing.T) {
	in := "Body text\nReferences\nRef 1\nSee also\nOther"
	got := Normalize(in)
	want := "Body text"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDropsArtefactLines(t *testing.T) {
	in := "Keep this\nthumb|a thumbnail caption\nscope=\"col\"\nrowspan=\"2\"\nstyle=\"color:red\"\nKeep that"
	got := Normalize(in)
	want := "Keep this\nKeep that"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStripsTableRowPrefixes(t *testing.T) {
	in := "| cell one\n! header one\n|- \n|} \nplain"
	got := Normalize(in)
	for _, bad := range []string{"| ", "! "} {
		if len(got) >= len(bad) && got[:len(bad)] == bad {
			t.Fatalf("prefix %q was not stripped: %q", bad, got)
		}
	}
}

func TestSymbolFixTable(t *testing.T) {
	in := "a–b (/c/) (, d ; ) e′f"
	got := fixSymbols(in)
	if got == in {
		t.Fatal("expected symbol substitutions to change the string")
	}
	for _, bad := range []string{"–", "′"} {
		if containsAny(got, []string{bad}) {
			t.Fatalf("expected %q to be replaced, got %q", bad, got)
		}
	}
}
