package models

import "testing"

func TestParseReadMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ReadMode
		wantErr bool
	}{
		{"scroll", ReadModeScroll, false},
		{"Vertical", ReadModeScroll, false},
		{" curl ", ReadModeCurl, false},
		{"page", ReadModeCurl, false},
		{"collection", ReadModeCollection, false},
		{"horizontal", ReadModeCollection, false},
		{"sideways", ReadModeScroll, true},
		{"", ReadModeScroll, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseReadMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseReadMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseReadMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestReadModeCycle(t *testing.T) {
	m := ReadModeScroll
	seen := map[ReadMode]bool{}
	for i := 0; i < 3; i++ {
		seen[m] = true
		back, err := ParseReadMode(m.String())
		if err != nil || back != m {
			t.Errorf("round trip of %v gave %v, %v", m, back, err)
		}
		m = m.Next()
	}
	if m != ReadModeScroll || len(seen) != 3 {
		t.Errorf("Next did not cycle through all modes: %v", seen)
	}
	if ReadModeScroll.Paged() || !ReadModeCurl.Paged() || !ReadModeCollection.Paged() {
		t.Error("only curl and collection are paged")
	}
}

func TestTextRange(t *testing.T) {
	r := TextRange{Location: 4, Length: 3}
	if r.End() != 7 {
		t.Errorf("End() = %d, want 7", r.End())
	}
	for off, want := range map[int]bool{3: false, 4: true, 6: true, 7: false} {
		if r.Contains(off) != want {
			t.Errorf("Contains(%d) = %v, want %v", off, !want, want)
		}
	}
}
