package views

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return b.String()
}

func TestEditorPanel_EscapesUserText(t *testing.T) {
	out := render(t, EditorPanel(Editor{
		SessionID: "s1",
		FieldID:   `<script>alert(1)</script>`,
		Title:     "CHANGE ORDERS",
		Rows:      []Row{{Key: "r1", Label: "CO-1", Amount: `"><b>`, Status: 1}},
		Statuses:  []string{"Pending", "Accepted", "Rejected"},
		CanAdd:    true,
	}))

	if strings.Contains(out, "<script>") {
		t.Errorf("field id not escaped: %s", out)
	}
	if strings.Contains(out, `value=""><b>"`) {
		t.Errorf("amount not escaped: %s", out)
	}
	if !strings.Contains(out, `<option value="1" selected>Accepted</option>`) {
		t.Errorf("selected status missing: %s", out)
	}
	if !strings.Contains(out, `action="/sessions/s1/rows/r1/amount"`) {
		t.Errorf("row form action missing: %s", out)
	}
}

func TestEditorPanel_WarningAndDisabledAdd(t *testing.T) {
	out := render(t, EditorPanel(Editor{SessionID: "s1", Warning: "Data may be corrupt", Notice: "No change orders currently!"}))

	for _, want := range []string{`<dialog open id="corrupt-warning">`, "Data may be corrupt", " disabled>Add change order", `class="notice"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "<table>") {
		t.Error("empty editor should not render a table")
	}
}

func TestPage_WrapsBody(t *testing.T) {
	out := render(t, Page("Fields & more", ErrorAlert("Oops", "Try again", "ERR000")))

	if !strings.HasPrefix(out, "<!DOCTYPE html>") || !strings.HasSuffix(out, "</body></html>") {
		t.Errorf("unexpected document shell: %s", out)
	}
	if !strings.Contains(out, "<title>Fields &amp; more</title>") {
		t.Errorf("title not escaped: %s", out)
	}
	if !strings.Contains(out, "Error code: ERR000") {
		t.Errorf("alert missing: %s", out)
	}
}

func TestFieldIndex(t *testing.T) {
	if out := render(t, FieldIndex(nil)); !strings.Contains(out, "No fields saved yet.") {
		t.Errorf("empty index: %s", out)
	}
	out := render(t, FieldIndex([]FieldSummary{{ID: "job-1", Bytes: 14}}))
	if !strings.Contains(out, `<a href="/fields/job-1">job-1</a>`) || !strings.Contains(out, "14 B") {
		t.Errorf("index row missing: %s", out)
	}
}
