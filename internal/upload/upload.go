// Package upload validates selected files and stores them one at a time in object storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ObjectStore is the storage surface the workflow needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (string, error)
	PublicURL(bucket, path string) string
}

// File is one locally selected file.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// ValidationError rejects a whole selection before any network call.
type ValidationError struct {
	Message string
	Files   []string
}

func (e *ValidationError) Error() string {
	if len(e.Files) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Files, ", "))
}

// Outcome is the per-file result of a batch.
type Outcome struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
	err   error
}

// OK reports whether the file was stored.
func (o Outcome) OK() bool {
	return o.err == nil && o.URL != ""
}

// Err returns the failure cause, if any.
func (o Outcome) Err() error {
	return o.err
}

// Result holds outcomes in input order.
type Result struct {
	Bucket   string    `json:"bucket"`
	Outcomes []Outcome `json:"outcomes"`
}

// URLs returns the public URLs of stored files, preserving input order.
func (r Result) URLs() []string {
	urls := []string{}
	for _, o := range r.Outcomes {
		if o.OK() {
			urls = append(urls, o.URL)
		}
	}
	return urls
}

// Failed returns the outcomes that were not stored.
func (r Result) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Workflow runs validation and sequential uploads.
type Workflow struct {
	store  ObjectStore
	logger *zap.Logger
	now    func() time.Time
}

// NewWorkflow builds a workflow over the given object store.
func NewWorkflow(store ObjectStore, logger *zap.Logger) *Workflow {
	return &Workflow{store: store, logger: logger, now: time.Now}
}

// Validate rejects the entire selection if any file breaks the profile's rules.
func Validate(p Profile, files []File) error {
	if len(files) == 0 {
		return &ValidationError{Message: "no files selected"}
	}
	if !p.Multiple && len(files) > 1 {
		return &ValidationError{Message: "only one file may be uploaded"}
	}

	var oversized, rejected []string
	for _, f := range files {
		if p.MaxBytes > 0 && f.Size > p.MaxBytes {
			oversized = append(oversized, f.Name)
		}
		if !slices.Contains(p.Accept, strings.ToLower(filepath.Ext(f.Name))) {
			rejected = append(rejected, f.Name)
		}
	}
	if len(oversized) > 0 {
		return &ValidationError{
			Message: fmt.Sprintf("files larger than %s", humanize.IBytes(uint64(p.MaxBytes))),
			Files:   oversized,
		}
	}
	if len(rejected) > 0 {
		return &ValidationError{
			Message: fmt.Sprintf("unsupported file type (allowed: %s)", strings.Join(p.Accept, ",")),
			Files:   rejected,
		}
	}
	return nil
}

// NewKey returns a collision-resistant object key: <unix-millis>-<ulid>.<ext>.
func NewKey(name string, now time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	key := fmt.Sprintf("%d-%s", now.UnixMilli(), strings.ToLower(ulid.Make().String()))
	if ext == "" {
		return key
	}
	return key + "." + ext
}

// Run validates the selection then uploads each file in order. A failed file is logged and
// recorded in its Outcome; the batch continues. Cancelling ctx stops the loop and marks the
// remaining files with the context error, which is also returned.
func (w *Workflow) Run(ctx context.Context, p Profile, files []File) (Result, error) {
	if err := Validate(p, files); err != nil {
		return Result{}, err
	}

	result := Result{Bucket: p.Bucket, Outcomes: make([]Outcome, 0, len(files))}
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			for _, rest := range files[i:] {
				result.Outcomes = append(result.Outcomes, failed(rest.Name, err))
			}
			return result, err
		}

		outcome := w.uploadOne(ctx, p.Bucket, f)
		if outcome.err != nil {
			w.logger.Warn("upload failed",
				zap.String("bucket", p.Bucket),
				zap.String("file", f.Name),
				zap.Error(outcome.err),
			)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

func (w *Workflow) uploadOne(ctx context.Context, bucket string, f File) Outcome {
	if f.Open == nil {
		return failed(f.Name, errors.New("file is not readable"))
	}
	body, err := f.Open()
	if err != nil {
		return failed(f.Name, fmt.Errorf("open: %w", err))
	}
	defer body.Close()

	key := NewKey(f.Name, w.now())
	path, err := w.store.Put(ctx, bucket, key, f.ContentType, body, f.Size)
	if err != nil {
		return failed(f.Name, err)
	}
	return Outcome{Name: f.Name, Path: path, URL: w.store.PublicURL(bucket, path)}
}

func failed(name string, err error) Outcome {
	return Outcome{Name: name, Error: "upload failed", err: err}
}
