package scribe

import "testing"

func TestCleanResponse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare array", `[{"action":"transaction"}]`, `[{"action":"transaction"}]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"plain fence", "```\n[1,2]\n```", "[1,2]"},
		{"prose around array", "Here are your actions:\n[1,2]\nLet me know!", "[1,2]"},
		{"bare object", `{"action":"transfer"}`, `{"action":"transfer"}`},
		{"prose around object", "Sure: {\"a\":1} done", `{"a":1}`},
		{"whitespace", "  \n [1] \n ", "[1]"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := cleanResponse(c.in); got != c.want {
				t.Errorf("cleanResponse(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}
