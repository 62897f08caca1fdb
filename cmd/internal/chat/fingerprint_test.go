package chat

import "testing"

func TestFingerprintStableLayout(t *testing.T) {
	t.Parallel()

	// Hash of "42_7_hello"; existing rows depend on this exact layout.
	const want = "0ca49dc10db5c8dcce6e108f981f14d67d5c41a693f1476375a2973cbfbdd682"

	got := Fingerprint(42, 7, "hello")
	if got != want {
		t.Fatalf("Fingerprint(42, 7, %q)=%s want=%s", "hello", got, want)
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	a := Fingerprint(1, 2, "hi")
	b := Fingerprint(1, 2, "hi")
	if a != b {
		t.Fatalf("same inputs produced different fingerprints: %s vs %s", a, b)
	}
}

func TestFingerprintDistinguishesInputs(t *testing.T) {
	t.Parallel()

	base := Fingerprint(1, 2, "hi")

	cases := []struct {
		name string
		got  string
	}{
		{name: "different chat", got: Fingerprint(2, 2, "hi")},
		{name: "different sender", got: Fingerprint(1, 3, "hi")},
		{name: "different text", got: Fingerprint(1, 2, "hi ")},
	}

	for _, tc := range cases {
		if tc.got == base {
			t.Errorf("%s: fingerprint collided with base", tc.name)
		}
	}
}
