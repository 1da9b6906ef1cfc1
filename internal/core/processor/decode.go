package processor

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// DecodeBase64Image wandelt einen Base64-String (optional als data-URL) in Bytes um.
func DecodeBase64Image(s string) ([]byte, error) {
	payload := strings.TrimSpace(s)
	if strings.Contains(payload, "data:image") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: data URL without payload", ErrInvalidBase64)
		}
		payload = payload[idx+1:]
	}

	// Zeilenumbrüche aus MIME-formatiertem Base64 entfernen
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)

	if payload == "" {
		return nil, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Padding ist optional
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}

// ConfidenceFromDistance rechnet die LBPH-Distanz in einen Prozentwert um,
// gerundet auf zwei Nachkommastellen. Gerundet wird auf dem exakten
// Dezimalwert, genaue Hälften zur geraden Ziffer.
func ConfidenceFromDistance(distance float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(100-distance, 'f', 2, 64), 64)
	if err != nil {
		return 100 - distance
	}
	return rounded
}
