package crawler

import (
	"slices"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "double and single quotes in document order",
			html: `<a href="/a">a</a><link href='/b.css'><a HREF="/upper">x</a><a href = "/c">c</a>`,
			want: []string{"/a", "/b.css", "/c"},
		},
		{
			name: "entities are unescaped",
			html: `<a href="/search?q=1&amp;page=2">s</a>`,
			want: []string{"/search?q=1&page=2"},
		},
		{
			name: "percent escapes are decoded except reserved characters",
			html: `<a href="/caf%C3%A9%20menu?x=a%2Fb%26c">m</a>`,
			want: []string{"/café menu?x=a%2Fb%26c"},
		},
		{
			name: "malformed escapes are kept raw",
			html: `<a href="/100%zz">p</a><a href="/bad%C3">q</a>`,
			want: []string{"/100%zz", "/bad%C3"},
		},
		{
			name: "empty hrefs are skipped",
			html: `<a href="">e</a><a href=''>e</a><a href="/x">x</a>`,
			want: []string{"/x"},
		},
		{
			name: "duplicates are kept",
			html: `<a href="/x">1</a><a href="/x">2</a>`,
			want: []string{"/x", "/x"},
		},
		{
			name: "no links",
			html: `<p>plain text</p>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := slices.Collect(ExtractLinks(tt.html))
			if !slices.Equal(got, tt.want) {
				t.Errorf("ExtractLinks() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("stops when the consumer stops", func(t *testing.T) {
		t.Parallel()

		n := 0
		for range ExtractLinks(`<a href="/1"></a><a href="/2"></a><a href="/3"></a>`) {
			n++
			if n == 2 {
				break
			}
		}
		if n != 2 {
			t.Errorf("consumed %d links, want 2", n)
		}
	})
}

func TestDecodeURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "/plain", want: "/plain", wantOK: true},
		{in: "/a%20b", want: "/a b", wantOK: true},
		{in: "/%E6%97%A5%E6%9C%AC", want: "/日本", wantOK: true},
		{in: "/a%3Fb%23c", want: "/a%3Fb%23c", wantOK: true},
		{in: "/%7e", want: "/~", wantOK: true},
		{in: "/%", want: "/%", wantOK: false},
		{in: "/%4", want: "/%4", wantOK: false},
		{in: "/%FF", want: "/%FF", wantOK: false},
		{in: "/%E6%97", want: "/%E6%97", wantOK: false},
		{in: "/%C3%28", want: "/%C3%28", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, ok := decodeURI(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("decodeURI(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
