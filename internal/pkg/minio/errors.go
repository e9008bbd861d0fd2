package minio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

var (
	ErrInvalidArgument   = errors.New("minio: invalid argument")
	ErrInvalidBucketName = errors.New("minio: invalid bucket name")
	ErrInvalidObjectName = errors.New("minio: invalid object name")
)

// Error records which operation failed and on what target.
type Error struct {
	Op     string
	Target string // bucket, bucket/object or a free-form note
	Err    error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("minio: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("minio: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError tags err with op and the bucket/object it concerned.
func WrapError(op string, err error, bucket, object string) error {
	if err == nil {
		return nil
	}
	target := strings.Trim(bucket+"/"+object, "/")
	return &Error{Op: op, Target: target, Err: err}
}

// WrapErrorWithMessage tags err with op and a note instead of a target.
func WrapErrorWithMessage(op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Target: "(" + message + ")", Err: err}
}

func responseCode(err error) string {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code
	}
	return ""
}

// IsNotFound reports whether the server said the bucket or key does not exist.
func IsNotFound(err error) bool {
	switch responseCode(err) {
	case "NoSuchBucket", "NoSuchKey", "NoSuchUpload":
		return true
	}
	return false
}

// IsBucketAlreadyExists reports a lost race on bucket creation.
func IsBucketAlreadyExists(err error) bool {
	switch responseCode(err) {
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return true
	}
	return false
}
