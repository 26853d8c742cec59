package auth

import (
	"fmt"
	"pairchat/domain"
	"pairchat/domain/mimetypes"
	"pairchat/errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type filePayload struct {
	Filename     string `validate:"required"`
	OriginalName string `validate:"required"`
	Size         int64  `validate:"gt=0"`
	MimeType     string `validate:"required"`
	URL          string `validate:"required"`
}

// PayloadValidator checks inbound message payloads before anything is persisted.
type PayloadValidator struct {
	maxContentLength int
}

func NewPayloadValidator(maxContentLength int) PayloadValidator {
	return PayloadValidator{maxContentLength: maxContentLength}
}

// ValidateContent accepts non blank text of at most maxContentLength characters.
func (v PayloadValidator) ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.ErrEmptyContent
	}
	return v.validateLength(content)
}

// ValidateMessage checks a send payload and returns the file descriptor with its
// media type normalized.
func (v PayloadValidator) ValidateMessage(messageType domain.MessageType, content string, file *domain.FileDescriptor) (*domain.FileDescriptor, error) {
	if err := validate.Var(string(messageType), "oneof=text file image"); err != nil {
		return nil, fmt.Errorf("%w: unknown message type %q", errors.ErrValidation, messageType)
	}
	if messageType == domain.TextMessage {
		return nil, v.ValidateContent(content)
	}
	if err := v.validateLength(content); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: missing", errors.ErrInvalidFile)
	}
	if err := validate.Struct(filePayload(*file)); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidFile, err)
	}
	mediaType, ok := mimetypes.Normalize(file.MimeType)
	if !ok {
		return nil, fmt.Errorf("%w: malformed mime type %q", errors.ErrInvalidFile, file.MimeType)
	}
	// Images are rendered inline, so only formats the detector knows are accepted.
	if messageType == domain.ImageMessage && (!mediaType.IsImage() || mimetype.Lookup(string(mediaType)) == nil) {
		return nil, fmt.Errorf("%w: %s is not a supported image", errors.ErrInvalidFile, mediaType)
	}
	normalized := *file
	normalized.MimeType = string(mediaType)
	return &normalized, nil
}

func (v PayloadValidator) validateLength(content string) error {
	if v.maxContentLength <= 0 {
		return nil
	}
	if err := validate.Var(content, fmt.Sprintf("max=%d", v.maxContentLength)); err != nil {
		return fmt.Errorf("%w: more than %d characters", errors.ErrContentTooLong, v.maxContentLength)
	}
	return nil
}
