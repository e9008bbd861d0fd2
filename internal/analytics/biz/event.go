package biz

import (
	"strings"
	"time"
)

// EventType 事件类型
type EventType string

const (
	EventView  EventType = "VIEW"
	EventPlay  EventType = "PLAY"
	EventClick EventType = "CLICK"
)

// ParseEventType 大小写不敏感
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(strings.ToUpper(strings.TrimSpace(s))); t {
	case EventView, EventPlay, EventClick:
		return t, nil
	default:
		return "", ErrInvalidEventType
	}
}

// Event 原始分析事件，写入后不可修改，过期自动删除
type Event struct {
	AssetID   string
	Type      EventType
	Platform  string
	Timestamp time.Time
	Metadata  map[string]interface{}
	// Nonce 同一毫秒内区分事件的随机后缀
	Nonce string
}

// MetricsSnapshot 外部聚合器写入的指标快照
type MetricsSnapshot struct {
	Views  int64   `json:"views"`
	Plays  int64   `json:"plays"`
	Clicks int64   `json:"clicks"`
	CTR    float64 `json:"ctr"`
}

// Metrics 读取结果；Raw 为 nil 表示尚无快照
type Metrics struct {
	Snapshot MetricsSnapshot
	Raw      []byte
}

// Cached 是否命中已写入的快照
func (m *Metrics) Cached() bool {
	return m.Raw != nil
}
