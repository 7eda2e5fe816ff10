package service

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/noah-isme/gema-tutor-web/internal/observability"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the extension or detected content type is not accepted by the backend.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates the archive structure of an office document is unsafe or broken.
	ErrUploadScanFailed = errors.New("file scanning failed")
)

// acceptedTypes maps each extension the backend ingests to the content types
// that may be sniffed for it. Office formats may be detected as plain zip.
var acceptedTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "application/zip"},
	".txt":  {"text/"},
	".md":   {"text/"},
	".csv":  {"text/"},
	".png":  {"image/png"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".bmp":  {"image/bmp", "image/x-ms-bmp"},
	".tiff": {"image/tiff"},
	".gif":  {"image/gif"},
}

// AcceptedExtensions lists the extensions for the file input's accept attribute.
func AcceptedExtensions() []string {
	return []string{".pdf", ".docx", ".pptx", ".txt", ".md", ".csv", ".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".gif"}
}

type checkedUpload struct {
	Name     string
	Content  []byte
	MimeType string
}

type uploadChecker struct {
	maxSize int64
}

func newUploadChecker(maxSizeMB int) uploadChecker {
	if maxSizeMB <= 0 {
		maxSizeMB = 25
	}
	return uploadChecker{maxSize: int64(maxSizeMB) * 1024 * 1024}
}

func (u uploadChecker) check(file *multipart.FileHeader) (checkedUpload, error) {
	if file == nil || strings.TrimSpace(file.Filename) == "" {
		return checkedUpload{}, invalid("Please choose a file to upload.")
	}
	if file.Size > u.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return checkedUpload{}, ErrUploadTooLarge
	}

	name := filepath.Base(strings.TrimSpace(file.Filename))
	ext := strings.ToLower(filepath.Ext(name))
	allowed, ok := acceptedTypes[ext]
	if !ok {
		observability.UploadRejected().WithLabelValues("extension").Inc()
		return checkedUpload{}, ErrUploadTypeNotAllowed
	}

	handle, err := file.Open()
	if err != nil {
		return checkedUpload{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, u.maxSize+1)); err != nil {
		return checkedUpload{}, err
	}
	if int64(buf.Len()) > u.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return checkedUpload{}, ErrUploadTooLarge
	}
	if buf.Len() == 0 {
		return checkedUpload{}, invalid("The selected file is empty.")
	}

	detected := mimetype.Detect(buf.Bytes())
	if !matchesAny(detected, allowed) {
		observability.UploadRejected().WithLabelValues("type").Inc()
		return checkedUpload{}, ErrUploadTypeNotAllowed
	}

	if ext == ".docx" || ext == ".pptx" {
		if err := u.scanArchive(buf.Bytes()); err != nil {
			observability.UploadRejected().WithLabelValues("scan").Inc()
			return checkedUpload{}, err
		}
	}

	return checkedUpload{Name: name, Content: buf.Bytes(), MimeType: detected.String()}, nil
}

// scanArchive refuses archives whose uncompressed size is wildly out of proportion.
func (u uploadChecker) scanArchive(payload []byte) error {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var total uint64
	for _, f := range reader.File {
		total += f.UncompressedSize64
		if total > uint64(u.maxSize*20) {
			return fmt.Errorf("archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func matchesAny(detected *mimetype.MIME, allowed []string) bool {
	for m := detected; m != nil; m = m.Parent() {
		value := m.String()
		if i := strings.Index(value, ";"); i >= 0 {
			value = value[:i]
		}
		for _, candidate := range allowed {
			if strings.HasSuffix(candidate, "/") && strings.HasPrefix(value, candidate) {
				return true
			}
			if m.Is(candidate) {
				return true
			}
		}
	}
	return false
}

// rejectUpload keeps the cause matchable while giving the page a readable message.
func rejectUpload(err error, maxSizeMB int) error {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrUploadTooLarge), errors.Is(err, ErrUploadTypeNotAllowed), errors.Is(err, ErrUploadScanFailed):
		return &ValidationError{Message: uploadErrorMessage(err, maxSizeMB), Cause: err}
	}
	return err
}

func uploadErrorMessage(err error, maxSizeMB int) string {
	switch {
	case errors.Is(err, ErrUploadTooLarge):
		return fmt.Sprintf("The file is larger than %d MB.", maxSizeMB)
	case errors.Is(err, ErrUploadTypeNotAllowed):
		return "This file type is not supported. Allowed: " + strings.Join(AcceptedExtensions(), ", ")
	case errors.Is(err, ErrUploadScanFailed):
		return "The document could not be read. Please check the file and try again."
	}
	return err.Error()
}
