package biz

import "errors"

// 分析模块错误
var (
	ErrInvalidEventType = errors.New("invalid event type")
	ErrMissingAssetID   = errors.New("asset_id is required")
	ErrEventWrite       = errors.New("failed to write analytics event")
	ErrKeyCollision     = errors.New("could not allocate a unique event key")
	ErrSnapshotAbsent   = errors.New("metrics snapshot not found")
)
