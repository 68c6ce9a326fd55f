package uri

import "testing"

func TestFromPathRoundTrip(t *testing.T) {
	cases := []string{
		"/home/user/project/widget.cpp",
		"/home/user/My Project/widget.cpp",
		"/home/user/project (old)/widget.cpp",
		"/home/user/project/foo#1.cpp",
		"/home/user/project/a&b/main.cc",
		"/home/user/project/v1,2+3;4?5@6$7/widget.cpp",
	}
	for _, want := range cases {
		got, err := ToPath(FromPath(want))
		if err != nil {
			t.Fatalf("ToPath(FromPath(%q)): %v", want, err)
		}
		if got != want {
			t.Errorf("round trip = %q, want %q", got, want)
		}
	}
}

func TestFromPathWindowsDriveLetter(t *testing.T) {
	got := FromPath(`C:/Users/jacob/widget.cpp`)
	want := "file://C%3A/Users/jacob/widget.cpp"
	if got != want {
		t.Errorf("FromPath = %q, want %q", got, want)
	}
	path, err := ToPath(got)
	if err != nil {
		t.Fatalf("ToPath: %v", err)
	}
	if path != "C:/Users/jacob/widget.cpp" {
		t.Errorf("ToPath = %q, want C:/Users/jacob/widget.cpp", path)
	}
}

func TestToPathRejectsNonFileScheme(t *testing.T) {
	if _, err := ToPath("http://example.com/widget.cpp"); err == nil {
		t.Error("expected an error for a non-file:// URI")
	}
}
