package textutil

import "testing"

func TestStripHTMLRemovesScriptAndStyleBlocks(t *testing.T) {
	t.Parallel()

	input := `<div>Hello<script>alert('x')</script> <style>.a{color:red}</style>World</div>`
	got := StripHTML(input)
	want := "Hello World"
	if got != want {
		t.Fatalf("StripHTML mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestStripHTMLDecodesEntitiesAndCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	input := "<p>Replika &amp; Character.AI\n\n   announce   a&nbsp;partnership</p>"
	got := StripHTML(input)
	want := "Replika & Character.AI announce a partnership"
	if got != want {
		t.Fatalf("StripHTML mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestStripHTMLHandlesPlainText(t *testing.T) {
	t.Parallel()

	input := "already plain text"
	if got := StripHTML(input); got != input {
		t.Fatalf("expected plain text unchanged, got %q", got)
	}
}
