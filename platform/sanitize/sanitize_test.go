package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{"<b>bold</b> move", "bold move"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;ok", "alert(1)ok"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"line one\nline two", "line one\nline two"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Proposal\nSent", "Proposal Sent"},
		{"  Follow   up\t call ", "Follow up call"},
		{"<i>Negotiation</i>", "Negotiation"},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabelPtr(t *testing.T) {
	if LabelPtr(nil) != nil {
		t.Fatal("nil in must give nil out")
	}
	in := " <b>Won</b> "
	if got := LabelPtr(&in); got == nil || *got != "Won" {
		t.Fatalf("unexpected %v", got)
	}
}
