package services

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"carriage returns become newlines", "a\r\nb\rc", "a\nb\nc"},
		{"horizontal runs collapse", "Mario   Rossi\t\tVia  Roma", "Mario Rossi Via Roma"},
		{"blank line runs collapse to two", "a\n\n\n\n\nb", "a\n\nb"},
		{"spaced blank lines still collapse", "a \n \n \n b", "a\n\nb"},
		{"leading and trailing trimmed", "  \n Intestatario: Mario \n ", "Intestatario: Mario"},
		{"already clean", "Intestatario: Mario Rossi", "Intestatario: Mario Rossi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
