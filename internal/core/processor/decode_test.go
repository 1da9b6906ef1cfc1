package processor

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeBase64Image(t *testing.T) {
	raw := []byte("\xff\xd8\xff\xe0 fake jpeg")
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr error
	}{
		{name: "plain", input: encoded, want: raw},
		{name: "data url", input: "data:image/jpeg;base64," + encoded, want: raw},
		{name: "without padding", input: base64.RawStdEncoding.EncodeToString(raw), want: raw},
		{name: "line breaks", input: encoded[:8] + "\n" + encoded[8:], want: raw},
		{name: "empty", input: "", wantErr: ErrNoImage},
		{name: "empty data url", input: "data:image/png;base64,", wantErr: ErrNoImage},
		{name: "data url without comma", input: "data:image/png;base64", wantErr: ErrInvalidBase64},
		{name: "invalid", input: "not base64 at all!", wantErr: ErrInvalidBase64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64Image(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != string(tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConfidenceFromDistance(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 100},
		{42.123, 57.88},
		{37.5, 62.5},
		{100, 0},
		{120.456, -20.46},
		// genaue Hälften runden zur geraden Ziffer
		{42.875, 57.12},
		{42.625, 57.38},
		{99.875, 0.12},
		{100.125, -0.12},
		{97.375, 2.62},
		// 100-97.325 liegt binär knapp unter 2.675
		{97.325, 2.67},
	}

	for _, tt := range tests {
		if got := ConfidenceFromDistance(tt.distance); got != tt.want {
			t.Errorf("ConfidenceFromDistance(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}
