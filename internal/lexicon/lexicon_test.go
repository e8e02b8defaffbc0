package lexicon

import (
	"testing"
)

func TestFindTerms_CaseInsensitive(t *testing.T) {
	lex := Default()

	found := lex.FindTerms("The PHYSICIAN noted Nausea and dizziness.")

	want := []string{"dizziness", "nausea", "physician"}
	if len(found) != len(want) {
		t.Fatalf("found %d terms, want %d: %+v", len(found), len(want), found)
	}
	for i, term := range want {
		if found[i].Term != term {
			t.Errorf("found[%d].Term = %q, want %q", i, found[i].Term, term)
		}
	}
}

func TestFindTerms_MultiWordEntries(t *testing.T) {
	lex := Default()

	found := lex.FindTerms("Watch for side effects and allergic reactions to the medication.")

	terms := map[string]bool{}
	for _, f := range found {
		terms[f.Term] = true
	}
	if !terms["side effects"] {
		t.Error("expected multi-word term 'side effects' to match")
	}
	if !terms["allergic reactions"] {
		t.Error("expected multi-word term 'allergic reactions' to match")
	}
}

func TestFindTerms_SortedOrder(t *testing.T) {
	lex := Default()

	found := lex.FindTerms("symptoms may worsen or persist despite the dosage")
	for i := 1; i < len(found); i++ {
		if found[i-1].Term >= found[i].Term {
			t.Fatalf("terms not sorted: %q before %q", found[i-1].Term, found[i].Term)
		}
	}
}

func TestFindTerms_NoMatches(t *testing.T) {
	lex := Default()

	if found := lex.FindTerms("a perfectly ordinary sentence"); len(found) != 0 {
		t.Errorf("expected no matches, got %+v", found)
	}
}

func TestDefinition(t *testing.T) {
	lex := Default()

	def, ok := lex.Definition("physician")
	if !ok {
		t.Fatal("expected physician to be defined")
	}
	if def != "doctor" {
		t.Errorf("Definition(physician) = %q, want %q", def, "doctor")
	}

	// Lookup normalizes case and whitespace.
	if _, ok := lex.Definition("  Physician "); !ok {
		t.Error("expected normalized lookup to succeed")
	}

	if _, ok := lex.Definition("unknown"); ok {
		t.Error("expected unknown term to miss")
	}
}

func TestAccessorsCopyData(t *testing.T) {
	lex := Default()

	terms := lex.Terms()
	if len(terms) != 12 {
		t.Fatalf("len(Terms()) = %d, want 12", len(terms))
	}
	terms[0] = "mutated"
	if lex.Terms()[0] == "mutated" {
		t.Error("Terms() exposed internal slice")
	}

	if got := len(lex.ComplexWords()); got != 5 {
		t.Errorf("len(ComplexWords()) = %d, want 5", got)
	}
	if got := len(lex.SafetyWords()); got != 6 {
		t.Errorf("len(SafetyWords()) = %d, want 6", got)
	}
}
