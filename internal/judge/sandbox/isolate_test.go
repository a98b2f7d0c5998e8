package sandbox

import (
	"reflect"
	"testing"
)

func TestExpandCompileTemplateCompiled(t *testing.T) {
	argv, err := expandCompileTemplate("g++ -O2 {source_file} -o {output}", "/box/0/box", "cpp")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"g++", "-O2", "/box/0/box/source.cpp", "-o", "/box/0/box/source"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
}

func TestExpandCompileTemplateInterpreted(t *testing.T) {
	// Python templates keep {output} literal; the placeholder is only
	// bound for compiled languages.
	argv, err := expandCompileTemplate("python3 -m py_compile {source_file}", "/box/0/box", "py")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"python3", "-m", "py_compile", "/box/0/box/source.py"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}

	argv, err = expandCompileTemplate("echo {output}", "/box/0/box", "py")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if argv[1] != "{output}" {
		t.Fatalf("argv[1] = %q, want literal {output}", argv[1])
	}
}

func TestExpandRunTemplate(t *testing.T) {
	argv, err := expandRunTemplate("./{source}")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(argv) != 1 || argv[0] != "./source" {
		t.Fatalf("argv = %v, want [./source]", argv)
	}

	argv, err = expandRunTemplate("/usr/bin/python3 {source}.py")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"/usr/bin/python3", "source.py"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
}

func TestTokenizeQuoting(t *testing.T) {
	argv, err := tokenize(`sh -c "echo hello world"`)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := []string{"sh", "-c", "echo hello world"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if _, err := tokenize("   "); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1, "1"},
		{1.5, "1.5"},
		{2 + wallTimeSlack, "7"},
		{0.25, "0.25"},
	}
	for _, tc := range cases {
		if got := formatSeconds(tc.in); got != tc.want {
			t.Fatalf("formatSeconds(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
