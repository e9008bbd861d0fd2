package biz

import "errors"

// ShortLink 相关错误
var (
	ErrLinkNotFound   = errors.New("short link not found")
	ErrTargetNotFound = errors.New("target asset not found")
	ErrInvalidCode    = errors.New("invalid short code")
	ErrCodeTaken      = errors.New("short code already in use")
	ErrCodeExhausted  = errors.New("could not allocate a free short code")
)
