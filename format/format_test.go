package format

import "testing"

func TestDefaultStringNil(t *testing.T) {
	got, err := DefaultString(nil)
	if err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestDefaultStringBool(t *testing.T) {
	for v, want := range map[bool]string{true: "true", false: "false"} {
		got, err := DefaultString(v)
		if err != nil || got != want {
			t.Fatalf("got %q, %v, want %q", got, err, want)
		}
	}
}

func TestDefaultStringString(t *testing.T) {
	got, err := DefaultString("hi")
	if err != nil || got != "hi" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestDefaultStringNumeric(t *testing.T) {
	got, err := DefaultString(42)
	if err != nil || got != "42" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestJSONStringNil(t *testing.T) {
	got, err := JSONString(nil)
	if err != nil || got != "null" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestJSONStringString(t *testing.T) {
	got, err := JSONString("hi")
	if err != nil || got != `"hi"` {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestJSONStringNumeric(t *testing.T) {
	got, err := JSONString(42)
	if err != nil || got != "42" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestForDefaultsToDefault(t *testing.T) {
	f := For("")
	if f.FuncName() != "format.DefaultString" {
		t.Fatalf("got %q", f.FuncName())
	}
	got, err := f.Format(true)
	if err != nil || got != "true" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestForJSON(t *testing.T) {
	f := For(JSON)
	if f.FuncName() != "format.JSONString" {
		t.Fatalf("got %q", f.FuncName())
	}
	got, err := f.Format("hi")
	if err != nil || got != `"hi"` {
		t.Fatalf("got %q, %v", got, err)
	}
}
