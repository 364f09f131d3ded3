package web

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func named(name string, cmds ...*Command) *Chunk {
	c := NewChunk(Named, name)
	for _, cmd := range cmds {
		c.Append(cmd)
	}
	return c
}

func code(text string) *Command {
	return &Command{Kind: CodeCommand, Text: text, Location: Location{Name: "sample.w", Line: 1}}
}

func ref(name string) *Command {
	return &Command{Kind: ReferenceCommand, Name: name, Location: Location{Name: "sample.w", Line: 2}}
}

func chunkNames(w *Web, chunks []*Chunk) []string {
	var names []string
	for _, c := range chunks {
		names = append(names, w.DisplayName(c))
	}
	return names
}

func TestResolveName_ExactNamesUnchanged(t *testing.T) {
	w := New([]*Chunk{named("c3 has a long name")})
	for _, target := range []string{"c1", "c3 has a long name", "anything at all", ""} {
		got, err := w.ResolveName(target)
		if err != nil {
			t.Fatalf("ResolveName(%q): unexpected error: %v", target, err)
		}
		if got != target {
			t.Errorf("ResolveName(%q): expected unchanged, got %q", target, got)
		}
	}
}

func TestResolveName_Abbreviation(t *testing.T) {
	w := New([]*Chunk{named("c3 has a long name"), named("other")})
	got, err := w.ResolveName("c3...")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "c3 has a long name" {
		t.Errorf("expected %q, got %q", "c3 has a long name", got)
	}
}

func TestResolveName_NoCandidate(t *testing.T) {
	w := New([]*Chunk{named("other")})
	got, err := w.ResolveName("missing...")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "missing..." {
		t.Errorf("expected target back, got %q", got)
	}
}

func TestResolveName_Ambiguous(t *testing.T) {
	w := New([]*Chunk{named("part1b"), named("part1a"), named("part2")})
	_, err := w.ResolveName("part1...")
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
	want := "ambiguous abbreviation 'part1...', matches ['part1a', 'part1b']"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestResolveChunk_Continuations(t *testing.T) {
	first := named("body", code("one\n"))
	second := named("bo...", code("two\n"))
	other := named("other")
	w := New([]*Chunk{first, other, second})

	defs, err := w.ResolveChunk("body")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 || defs[0] != first || defs[1] != second {
		t.Fatalf("expected both definitions in order, got %v", chunkNames(w, defs))
	}
	if !first.Initial || second.Initial {
		t.Errorf("expected only the first definition to be initial")
	}

	defs, err = w.ResolveChunk("nothing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("expected no definitions, got %d", len(defs))
	}
}

func TestNew_SequenceNumbers(t *testing.T) {
	anon := NewChunk(Anonymous, "")
	out := NewChunk(Output, "out.c")
	doc := NewChunk(NamedDocument, "title")
	n := named("main")
	w := New([]*Chunk{anon, out, doc, n})

	if anon.Seq != 0 || doc.Seq != 0 {
		t.Errorf("expected no sequence for anonymous/document chunks, got %d and %d", anon.Seq, doc.Seq)
	}
	if out.Seq != 1 || n.Seq != 2 {
		t.Errorf("expected sequence 1 and 2, got %d and %d", out.Seq, n.Seq)
	}
	if w.FullName(out) != "" {
		t.Errorf("output chunks have no full name, got %q", w.FullName(out))
	}
	if w.DisplayName(out) != "out.c" {
		t.Errorf("expected display name %q, got %q", "out.c", w.DisplayName(out))
	}
}

func TestWeb_CrossReferenceViews(t *testing.T) {
	anon := NewChunk(Anonymous, "")
	out := NewChunk(Output, "c2")
	out.Append(ref("c3..."))
	c3 := named("c3 has a long name")
	c3.DefNames = []string{"userid", "alpha"}
	c4 := named("b macro")
	c4.DefNames = []string{"userid"}
	doc := NewChunk(NamedDocument, "a doc")
	w := New([]*Chunk{anon, out, c3, c4, doc})

	if diff := cmp.Diff([]string{"c2"}, chunkNames(w, w.Files())); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	var macroNames []string
	for _, m := range w.Macros() {
		macroNames = append(macroNames, m.FullName)
	}
	if diff := cmp.Diff([]string{"b macro", "c3 has a long name"}, macroNames); diff != "" {
		t.Errorf("macros mismatch (-want +got):\n%s", diff)
	}

	ids := w.UserIDs()
	if len(ids) != 2 || ids[0].Name != "alpha" || ids[1].Name != "userid" {
		t.Fatalf("expected sorted ids [alpha userid], got %+v", ids)
	}
	if diff := cmp.Diff([]string{"c3 has a long name", "b macro"}, chunkNames(w, ids[1].Refs)); diff != "" {
		t.Errorf("userid refs mismatch (-want +got):\n%s", diff)
	}
}

func TestWeb_ReferenceDiagnostics(t *testing.T) {
	a := named("a")
	b := named("b")
	c := named("c")
	w := New([]*Chunk{a, b, c})
	b.AddReferrer(a)
	c.AddReferrer(a)
	c.AddReferrer(b)

	if diff := cmp.Diff([]string{"a"}, chunkNames(w, w.NoReference())); diff != "" {
		t.Errorf("no_reference mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c"}, chunkNames(w, w.MultiReference())); diff != "" {
		t.Errorf("multi_reference mismatch (-want +got):\n%s", diff)
	}

	w.ResetReferences()
	if len(w.MultiReference()) != 0 || len(w.NoReference()) != 3 {
		t.Errorf("expected counters cleared")
	}
}

func TestWeb_TransitiveReferencedBy(t *testing.T) {
	main := named("Main")
	parent := named("Parent")
	sub := named("Sub")
	w := New([]*Chunk{main, parent, sub})
	parent.AddReferrer(main)
	sub.AddReferrer(parent)

	if diff := cmp.Diff([]string{"Parent", "Main"}, chunkNames(w, w.TransitiveReferencedBy(sub))); diff != "" {
		t.Errorf("sub chain mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Main"}, chunkNames(w, w.TransitiveReferencedBy(parent))); diff != "" {
		t.Errorf("parent chain mismatch (-want +got):\n%s", diff)
	}
	if got := w.TransitiveReferencedBy(main); len(got) != 0 {
		t.Errorf("expected empty chain for top chunk, got %d", len(got))
	}
}

func TestWeb_DocText(t *testing.T) {
	doc := NewChunk(NamedDocument, "title")
	doc.AppendText("the title ", Location{Name: "t.w", Line: 1})
	doc.AppendText("of this document", Location{Name: "t.w", Line: 1})
	w := New([]*Chunk{doc, named("code")})

	text, ok, err := w.DocText("tit...")
	if err != nil || !ok {
		t.Fatalf("expected document text, got ok=%v err=%v", ok, err)
	}
	if text != "the title of this document" {
		t.Errorf("unexpected text %q", text)
	}
	if len(doc.Commands) != 1 {
		t.Errorf("expected coalesced text, got %d commands", len(doc.Commands))
	}

	if _, ok, _ := w.DocText("code"); ok {
		t.Errorf("expected code chunk not to expand as text")
	}
}

func TestError_Messages(t *testing.T) {
	loc := Location{Name: "sample.w", Line: 314}
	err := TextTangleError(loc, "Some text & words in the document\n    ")
	want := "sample.w:314: attempt to tangle a text block 'Some text & words in the [...]'"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(UndefinedError(loc, "part2"), ErrUndefined) {
		t.Errorf("expected undefined error to match ErrUndefined")
	}
	if !errors.Is(XrefTangleError(loc), ErrTangle) {
		t.Errorf("expected xref error to match ErrTangle")
	}
}

func TestWeb_UsedBy(t *testing.T) {
	out := NewChunk(Output, "out.c")
	out.Append(ref("body..."))
	out.Append(ref("body"))
	body := named("body text", code("x\n"))
	more := named("body text", code("y\n"))
	w := New([]*Chunk{out, body, more})

	if diff := cmp.Diff([]string{"out.c"}, chunkNames(w, w.UsedBy(more))); diff != "" {
		t.Errorf("used by mismatch (-want +got):\n%s", diff)
	}
	if got := w.UsedBy(out); len(got) != 0 {
		t.Errorf("expected nothing to use an output chunk, got %d", len(got))
	}
}
