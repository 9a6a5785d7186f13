package fat32

import "testing"

func TestShortNameChecksum(t *testing.T) {
	tests := []struct {
		name string
		raw  [11]byte
		want byte
	}{
		{
			name: "all spaces",
			raw:  [11]byte{' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '},
			want: 247,
		},
		{
			name: "README  TXT",
			raw:  [11]byte{'R', 'E', 'A', 'D', 'M', 'E', ' ', ' ', 'T', 'X', 'T'},
			want: 115,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shortNameChecksum(tt.raw)
			if got != tt.want {
				t.Errorf("shortNameChecksum() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShortNameChecksum_Deterministic(t *testing.T) {
	raw := [11]byte{'F', 'O', 'O', ' ', ' ', ' ', ' ', ' ', 'B', 'A', 'R'}
	a := shortNameChecksum(raw)
	b := shortNameChecksum(raw)
	if a != b {
		t.Errorf("shortNameChecksum() not deterministic: %v != %v", a, b)
	}
}

func TestDecodeDate(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want Date
	}{
		{
			name: "1980-01-01 epoch",
			raw:  0x0021,
			want: Date{Year: 1980, Month: 1, Day: 1},
		},
		{
			name: "2024-03-15",
			raw:  uint16((2024-1980)<<9 | 3<<5 | 15),
			want: Date{Year: 2024, Month: 3, Day: 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeDate(tt.raw)
			if got != tt.want {
				t.Errorf("decodeDate(%#04x) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeTime_NoDisplayOffset(t *testing.T) {
	// Hour and minute must come back exactly as stored, with no
	// rendering offset applied.
	raw := uint16(14<<11 | 30<<5 | 10)
	got := decodeTime(raw)
	want := Time{Hour: 14, Minute: 30, Second: 20}
	if got != want {
		t.Errorf("decodeTime(%#04x) = %+v, want %+v", raw, got, want)
	}
}

func TestEncodeDecodeDateTime_RoundTrip(t *testing.T) {
	d := Date{Year: 2026, Month: 7, Day: 31}
	tm := Time{Hour: 12, Minute: 34, Second: 56}

	gotDate := decodeDate(encodeDate(d))
	if gotDate != d {
		t.Errorf("date round-trip = %+v, want %+v", gotDate, d)
	}

	gotTime := decodeTime(encodeTime(tm))
	// Seconds only carry 2-second granularity.
	want := Time{Hour: 12, Minute: 34, Second: 56}
	if gotTime != want {
		t.Errorf("time round-trip = %+v, want %+v", gotTime, want)
	}
}

func TestIsLongNameFragment(t *testing.T) {
	if !isLongNameFragment(AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID) {
		t.Error("expected LFN attribute combination to be recognized")
	}
	if isLongNameFragment(AttrArchive) {
		t.Error("plain archive attribute must not be classified as LFN")
	}
}

func TestShortDirEntry_Classifiers(t *testing.T) {
	dir := ShortDirEntry{Attributes: AttrDirectory}
	if !dir.IsDirectory() || dir.IsRegularFile() || dir.IsVolumeLabel() {
		t.Errorf("directory entry misclassified: %+v", dir)
	}

	label := ShortDirEntry{Attributes: AttrVolumeID}
	if !label.IsVolumeLabel() || label.IsDirectory() || label.IsRegularFile() {
		t.Errorf("volume label misclassified: %+v", label)
	}

	file := ShortDirEntry{Attributes: AttrArchive}
	if !file.IsRegularFile() || file.IsDirectory() || file.IsVolumeLabel() {
		t.Errorf("regular file misclassified: %+v", file)
	}
}

func TestOrdinalIndex(t *testing.T) {
	tests := []struct {
		ordinal byte
		want    int
	}{
		{ordinal: 0x01, want: 0},
		{ordinal: 0x42, want: 1}, // last-fragment bit (0x40) set, low nibble 2
		{ordinal: 0x03, want: 2},
	}

	for _, tt := range tests {
		got := ordinalIndex(tt.ordinal)
		if got != tt.want {
			t.Errorf("ordinalIndex(%#02x) = %v, want %v", tt.ordinal, got, tt.want)
		}
	}
}
