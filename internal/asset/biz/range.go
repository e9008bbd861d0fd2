package biz

import (
	"fmt"
	"regexp"
	"strconv"
)

var rangePattern = regexp.MustCompile(`^bytes=(\d+)-(\d*)$`)

// ByteRange 闭区间 [Start, End]
type ByteRange struct {
	Start int64
	End   int64
}

// Length 区间字节数
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange 生成 Content-Range 头
func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange 解析 "bytes=<start>-<end>"（end 可省略）。
// 多段、后缀形式以及 start > end 视为格式错误；start 超出对象大小为不可满足；
// end 超出时截断到最后一个字节。
func ParseRange(header string, size int64) (ByteRange, error) {
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return ByteRange{}, ErrRangeMalformed
	}

	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ByteRange{}, ErrRangeMalformed
	}

	end := size - 1
	if m[2] != "" {
		end, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return ByteRange{}, ErrRangeMalformed
		}
		if end < start {
			return ByteRange{}, ErrRangeMalformed
		}
	}

	if start >= size {
		return ByteRange{}, ErrRangeUnsatisfiable
	}
	if end >= size {
		end = size - 1
	}

	return ByteRange{Start: start, End: end}, nil
}
