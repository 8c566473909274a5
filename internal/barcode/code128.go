// Package barcode renders Code 128 labels for catalogue items.
package barcode

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

const (
	labelWidth  = 300
	labelHeight = 120
)

// EncodeCode128 renders text as a Code 128 PNG image.
func EncodeCode128(text string) ([]byte, error) {
	code, err := code128.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encoding barcode: %w", err)
	}

	scaled, err := barcode.Scale(code, labelWidth, labelHeight)
	if err != nil {
		return nil, fmt.Errorf("scaling barcode: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("rendering barcode png: %w", err)
	}
	return buf.Bytes(), nil
}
