package opencv

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // GIF-Decoder registrieren
	_ "image/jpeg" // JPEG-Decoder registrieren
	_ "image/png"  // PNG-Decoder registrieren

	"campus-face-id/internal/core/processor"

	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"  // BMP-Decoder registrieren
	_ "golang.org/x/image/tiff" // TIFF-Decoder registrieren
	_ "golang.org/x/image/webp" // WEBP-Decoder registrieren
	gocv "gocv.io/x/gocv"
)

// decodeImage dekodiert Bildbytes in eine BGR-Matrix. Formate, die OpenCV
// nicht lesen kann, werden über die Go-Decoder umgewandelt.
func decodeImage(data []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if err == nil {
		mat.Close()
	}

	img, format, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", processor.ErrUndecodableImage, decodeErr)
	}
	log.Debugf("OpenCV could not decode image, using Go %s decoder", format)

	mat, err = gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", processor.ErrUndecodableImage, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), processor.ErrUndecodableImage
	}
	return mat, nil
}

// toGray konvertiert eine BGR-Matrix in Graustufen
func toGray(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if src.Channels() == 1 {
		src.CopyTo(&gray)
		return gray
	}
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray
}
