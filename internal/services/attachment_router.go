// internal/services/attachment_router.go
package services

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var (
	photoFieldPattern     = regexp.MustCompile(`^(?:personnel\[(\d+)\]\[photo\]|photo_(\d+))$`)
	personnelFieldPattern = regexp.MustCompile(`^personnel\[(\d+)\]\[[^\]]+\]$`)
)

// NoRoster disables linking of personnel[N][...] fields to people.
const NoRoster = -1

// RoutedFile is an accepted upload with its classification.
type RoutedFile struct {
	Field        string
	Header       *multipart.FileHeader
	DocumentType string
	PersonIndex  int // roster index, or -1
	Photo        bool
}

type AttachmentRouter struct {
	maxFileSize int64
	maxFiles    int
}

func NewAttachmentRouter(maxFileSize int64, maxFiles int) *AttachmentRouter {
	return &AttachmentRouter{maxFileSize: maxFileSize, maxFiles: maxFiles}
}

// Route classifies every file of a request for step. roster is the number
// of people in the submitted payload, or NoRoster when the step has none.
// The first rejection fails the whole batch.
func (r *AttachmentRouter) Route(step int, files map[string][]*multipart.FileHeader, roster int) ([]RoutedFile, error) {
	total := 0
	for _, headers := range files {
		total += len(headers)
	}
	if total == 0 {
		return nil, nil
	}

	contract, ok := ContractFor(step)
	if !ok || contract.Uploads == nil {
		return nil, newStepError(CodeFileRejected, "step %d does not accept file uploads", step)
	}
	if r.maxFiles > 0 && total > r.maxFiles {
		return nil, newStepError(CodeFileRejected, "too many files: %d exceeds the limit of %d", total, r.maxFiles)
	}
	policy := contract.Uploads

	fields := make([]string, 0, len(files))
	for field := range files {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	routed := make([]RoutedFile, 0, total)
	for _, field := range fields {
		for _, header := range files[field] {
			if err := r.check(policy, field, header); err != nil {
				return nil, err
			}

			file := RoutedFile{
				Field:        field,
				Header:       header,
				DocumentType: fmt.Sprintf("%s_%s", policy.Category, field),
				PersonIndex:  -1,
			}
			if roster != NoRoster {
				index, photo, linked := personIndex(field)
				if linked {
					if index >= roster {
						return nil, newStepError(CodeFileRejected, "field %s refers to person %d but only %d were submitted", field, index, roster)
					}
					file.PersonIndex = index
					file.Photo = photo && step == 1
				}
			}
			routed = append(routed, file)
		}
	}

	return routed, nil
}

func (r *AttachmentRouter) check(policy *UploadPolicy, field string, header *multipart.FileHeader) error {
	if header == nil || header.Filename == "" {
		return newStepError(CodeFileRejected, "field %s has an empty file part", field)
	}
	ext := filepath.Ext(header.Filename)
	if !policy.Allows(ext) {
		return newStepError(CodeFileRejected, "file %s: type %q is not allowed, expected one of %v", header.Filename, ext, policy.Extensions)
	}
	if r.maxFileSize > 0 && header.Size > r.maxFileSize {
		return newStepError(CodeFileRejected, "file %s: size %d bytes exceeds the limit of %d bytes", header.Filename, header.Size, r.maxFileSize)
	}
	return nil
}

// personIndex extracts N from personnel[N][...] and photo_N field names.
func personIndex(field string) (index int, photo bool, ok bool) {
	if m := photoFieldPattern.FindStringSubmatch(field); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		n, err := strconv.Atoi(digits)
		return n, true, err == nil
	}
	if m := personnelFieldPattern.FindStringSubmatch(field); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, false, err == nil
	}
	return 0, false, false
}
