package classify

import (
	"slices"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[string]Class{
		"wg_home":  WireGuard,
		"mob1s1a1": Cellular,
		"wlan0":    Wireless,
		"wan":      Satellite,
		"lan":      Generic,
		"eth1":     Generic,
		"":         Generic,
	}
	for id, want := range cases {
		if got := Classify(id, "wan"); got != want {
			t.Fatalf("Classify(%q)=%v want %v", id, got, want)
		}
	}
	if got := Classify("starlink", "starlink"); got != Satellite {
		t.Fatalf("custom alias=%v", got)
	}
	if got := Classify("wan", ""); got != Generic {
		t.Fatalf("empty alias=%v", got)
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	if got := Chain(Generic); !slices.Equal(got, []string{"linkmanager", "kernel", "probe"}) {
		t.Fatalf("generic=%v", got)
	}
	if got := Chain(Cellular); !slices.Equal(got, []string{"linkmanager", "kernel", "probe", "cellular"}) {
		t.Fatalf("cellular=%v", got)
	}
	if got := Chain(Class(42)); len(got) != 3 {
		t.Fatalf("unknown=%v", got)
	}
}
