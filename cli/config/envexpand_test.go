package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("OUTPOST_SET", "real")
	t.Setenv("OUTPOST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set", "url: ${OUTPOST_SET}", "url: real"},
		{"unset", "url: ${OUTPOST_UNSET_12345}", "url: "},
		{"default when unset", "url: ${OUTPOST_UNSET_12345:-fallback}", "url: fallback"},
		{"default ignored when set", "url: ${OUTPOST_SET:-fallback}", "url: real"},
		{"default when empty", "url: ${OUTPOST_EMPTY:-fallback}", "url: fallback"},
		{"default with colon", "url: ${OUTPOST_UNSET_12345:-http://c2:8181/api}", "url: http://c2:8181/api"},
		{"multiple", "${OUTPOST_SET}/${OUTPOST_UNSET_12345:-x}", "real/x"},
		{"bare dollar untouched", "cost: $5 and $OUTPOST_SET", "cost: $5 and $OUTPOST_SET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpand_CustomLookup(t *testing.T) {
	lookup := func(name string) (string, bool) {
		if name == "HOME_DIR" {
			return "/srv/edge", true
		}
		return "", false
	}
	if got := expand("home: ${HOME_DIR}", lookup); got != "home: /srv/edge" {
		t.Errorf("got %q", got)
	}
}
