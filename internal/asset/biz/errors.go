package biz

import "errors"

// Asset 相关错误
var (
	ErrAssetNotFound  = errors.New("asset not found")
	ErrEmptyPayload   = errors.New("empty payload")
	ErrBlobNotFound   = errors.New("blob not found")
	ErrBlobWrite      = errors.New("blob write failed")
	ErrMetadataWrite  = errors.New("asset metadata write failed")
	ErrUnknownAlgo    = errors.New("unknown hash algorithm")
	ErrInvalidIDLen   = errors.New("invalid asset id length")
	ErrMetadataAbsent = errors.New("asset metadata not found")
)

// Range 相关错误
var (
	ErrRangeMalformed     = errors.New("malformed range header")
	ErrRangeUnsatisfiable = errors.New("range not satisfiable")
)
