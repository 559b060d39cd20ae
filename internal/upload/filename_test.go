package upload

import (
	"strings"
	"testing"
)

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{`..\..\windows\system32\cmd.exe`, "windows_system32_cmd.exe"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"logo_résumé photo.JPG", "logo_resume_photo.JPG"},
		{"a<b>c|d?.png", "abcd.png"},
		{"  spaced\tout\nname.gif ", "spaced_out_name.gif"},
		{"CON.txt", "_CON.txt"},
		{"lpt1", "_lpt1"},
		{"console.txt", "console.txt"},
		{".hidden", "hidden"},
		{"___", ""},
		{"...", ""},
		{"", ""},
		{"日本語.png", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SecureFilename(tt.in); got != tt.want {
				t.Errorf("SecureFilename(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSecureFilename_LengthCap(t *testing.T) {
	long := strings.Repeat("a", 150) + ".png"
	got := SecureFilename(long)
	if len(got) != maxFilenameLen {
		t.Fatalf("len = %d; want %d", len(got), maxFilenameLen)
	}
	if !strings.HasSuffix(got, ".png") {
		t.Errorf("extension lost: %q", got)
	}

	noExt := strings.Repeat("b", 300)
	if got := SecureFilename(noExt); len(got) != maxFilenameLen {
		t.Errorf("len = %d; want %d", len(got), maxFilenameLen)
	}
}

func TestSecureFilename_OnlySafeCharacters(t *testing.T) {
	inputs := []string{
		"a/b\\c:d*e?f\"g<h>i|j",
		"\x00null\x01byte.png",
		"emoji 😀 face.png",
		"%2e%2e%2fetc%2fpasswd",
	}
	for _, in := range inputs {
		got := SecureFilename(in)
		for _, r := range got {
			ok := r == '_' || r == '.' || r == '-' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !ok {
				t.Errorf("SecureFilename(%q) = %q contains %q", in, got, r)
			}
		}
		if strings.HasPrefix(got, ".") {
			t.Errorf("SecureFilename(%q) = %q starts with a dot", in, got)
		}
	}
}
