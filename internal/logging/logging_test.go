package logging

import "testing"

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		log, err := New(env)
		if err != nil {
			t.Fatalf("New(%q): %v", env, err)
		}
		if log == nil {
			t.Fatalf("New(%q) returned nil logger", env)
		}
	}

	prod, _ := New("production")
	if prod.Core().Enabled(-1) {
		t.Fatal("production logger must not enable debug")
	}
	dev, _ := New("development")
	if !dev.Core().Enabled(-1) {
		t.Fatal("development logger must enable debug")
	}
}
