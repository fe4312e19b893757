package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"forces https", "http://example.com/page", "https://example.com/page"},
		{"strips www", "https://www.example.com/page", "https://example.com/page"},
		{"drops fragment", "https://example.com/page#section-2", "https://example.com/page"},
		{"removes tracking params", "https://example.com/a?utm_source=x&utm_medium=y&fbclid=z&id=7", "https://example.com/a?id=7"},
		{"removes short share params", "https://example.com/a?s=20&t=abc&si=q", "https://example.com/a"},
		{"strips trailing slash", "https://example.com/docs/", "https://example.com/docs"},
		{"keeps root", "https://example.com/", "https://example.com/"},
		{"adds root to empty path", "https://example.com", "https://example.com/"},
		{"sorts params", "https://example.com/a?z=1&b=2&m=3", "https://example.com/a?b=2&m=3&z=1"},
		{"lower-cases", "https://Example.com/Some/Path?Q=Value", "https://example.com/some/path?q=value"},
		{"drops default port", "http://example.com:80/x", "https://example.com/x"},
		{"keeps other ports", "http://example.com:8080/x", "https://example.com:8080/x"},
		{"tracking keys ignore case", "https://example.com/a?UTM_Source=mail&id=1", "https://example.com/a?id=1"},
		{"semicolon in value", "https://x.com/?a=1;b=2&utm_source=x", "https://x.com/?a=1%3bb%3d2"},
		{"bad escape kept verbatim", "https://example.com/a?z=1&%ZZ=2&fbclid=q", "https://example.com/a?%zz=2&z=1"},
		{"unparsable falls back", "Not A URL", "not a url"},
		{"relative falls back", "/Just/A/Path", "/just/a/path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"http://www.www.Example.com//a//?B=1&a=2&UTM_SOURCE=x#frag",
		"https://example.com/a%2Fb?x=%E2%9C%93",
		"https://example.com/?a=1&A=2&a=3",
		"HTTP://WWW.EXAMPLE.COM:443/Path/",
		"https://[::1]:8443/x/",
		"https://example.com/search?q=hello+world&ref=home",
		"mailto:Someone@Example.com",
		"%%%",
		"",
		"https://example.com/a?%zz=1",
		"https://x.com/?a=1;b=2&utm_source=x",
		"https://example.com/a?b=%ZZ&A=1&utm_medium=m",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_Equivalence(t *testing.T) {
	base := Normalize("https://example.com/paper?id=1&lang=en")
	variants := []string{
		"http://example.com/paper?id=1&lang=en",
		"https://www.example.com/paper?id=1&lang=en",
		"https://example.com/paper/?id=1&lang=en",
		"https://example.com/paper?lang=en&id=1",
		"https://example.com/paper?id=1&lang=en#top",
		"https://example.com/paper?utm_campaign=spring&id=1&gclid=abc&lang=en",
	}
	for _, v := range variants {
		assert.Equal(t, base, Normalize(v), "variant %q", v)
	}

	assert.Equal(t, Normalize("https://x.com/?a=1;b=2"), Normalize("https://x.com/?a=1;b=2&utm_source=x"))
	assert.Equal(t, Normalize("https://x.com/?q=%ZZ&id=1"), Normalize("https://x.com/?id=1&ref=home&q=%ZZ"))
}
