package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		want     MIME
		ok       bool
		image    bool
	}{
		{"Plain text with charset", "text/plain; charset=utf-8", TextPlain, true, false},
		{"JSON with charset", "application/json; charset=utf-8", ApplicationJSON, true, false},
		{"PDF", "application/pdf", ApplicationPDF, true, false},
		{"PNG", "image/png", ImagePNG, true, true},
		{"Upper case JPEG", "IMAGE/JPEG", ImageJPEG, true, true},
		{"Invalid MIME", "not a mime", Unknown, false, false},
		{"Empty", "", Unknown, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, ok := Normalize(tt.declared)
			req.Equal(tt.ok, ok)
			req.Equal(tt.want, got)
			req.Equal(tt.image, got.IsImage())
		})
	}
}
