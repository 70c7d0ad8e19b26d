// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	if NotebookNotFoundId != 1 {
		t.Errorf("NotebookNotFoundId = %d, want 1", NotebookNotFoundId)
	}
	if got := len(Values()); got != int(InvalidRuntimeId) {
		t.Errorf("len(Values()) = %d, want one issue per id (%d)", got, InvalidRuntimeId)
	}
}

func TestGet(t *testing.T) {
	for _, is := range Values() {
		got := Get(is.Id())
		if got != is {
			t.Errorf("Get(%d) returned a different issue", is.Id())
		}
		if strings.TrimSpace(string(got.MarkdownMsg())) == "" {
			t.Errorf("issue %d has an empty message", is.Id())
		}
	}

	if Get(Id(999)) != nil {
		t.Error("Get(999) should return nil")
	}
}

func TestValues_Ordered(t *testing.T) {
	values := Values()
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Fatalf("Values() not ordered at %d: %d >= %d", i, values[i-1].Id(), values[i].Id())
		}
	}
}

func TestIssue_ExtLinksIsACopy(t *testing.T) {
	is := Get(NotebookInvalidId)
	links := is.ExtLinks()
	if len(links) == 0 {
		t.Fatal("NotebookInvalid should carry a format reference link")
	}
	links[0] = "https://example.invalid"
	if is.ExtLinks()[0] == "https://example.invalid" {
		t.Error("ExtLinks() should return a copy")
	}
}

func TestIssue_Render(t *testing.T) {
	original := render
	t.Cleanup(func() { render = original })

	var gotMarkdown, gotStyle string
	render = func(in, stylePath string) (string, error) {
		gotMarkdown, gotStyle = in, stylePath
		return "rendered", nil
	}

	out, err := Get(NotebookInvalidId).Render("dark")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "rendered" || gotStyle != "dark" {
		t.Errorf("Render() = %q with style %q", out, gotStyle)
	}
	if !strings.Contains(gotMarkdown, "## See also:") {
		t.Error("Render() should append the See also section for linked issues")
	}
}

func TestIssue_RenderNoTTY(t *testing.T) {
	out, err := Get(ExecutionTimedOutId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "timed out") {
		t.Errorf("Render() output missing heading text:\n%s", out)
	}
}
