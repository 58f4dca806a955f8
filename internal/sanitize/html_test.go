package sanitize

import "testing"

func TestTextStripsAllMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain title", "plain title"},
		{"<b>bold</b> title", "bold title"},
		{`<script>alert("xss")</script>hi`, "hi"},
		{`<a href="https://example.com">link</a>`, "link"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHTMLKeepsSafeFormatting(t *testing.T) {
	if got := HTML("<p>hello <strong>world</strong></p>"); got != "<p>hello <strong>world</strong></p>" {
		t.Errorf("safe markup altered: %q", got)
	}
}

func TestHTMLRemovesDangerousContent(t *testing.T) {
	tests := []string{
		`<script>alert("xss")</script>`,
		`<iframe src="https://evil.example.com"></iframe>`,
		`<img src=x onerror=alert(1)>`,
	}
	for _, in := range tests {
		got := HTML(in)
		if got == in {
			t.Errorf("HTML(%q) left input unchanged", in)
		}
	}
}
