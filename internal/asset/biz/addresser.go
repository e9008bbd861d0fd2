package biz

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// 支持的摘要算法，均输出 32 字节
const (
	AlgorithmSHA256  = "sha256"
	AlgorithmBLAKE3  = "blake3"
	AlgorithmBLAKE2b = "blake2b"
)

// asset_id 长度（十六进制字符数）
const (
	MinIDLength     = 16
	MaxIDLength     = 64
	DefaultIDLength = 32
)

var digests = map[string]func([]byte) [32]byte{
	AlgorithmSHA256:  sha256.Sum256,
	AlgorithmBLAKE3:  blake3.Sum256,
	AlgorithmBLAKE2b: blake2b.Sum256,
}

// Addresser 从内容字节计算确定性的 asset_id
type Addresser struct {
	algorithm string
	length    int
	sum       func([]byte) [32]byte
}

// NewAddresser 创建 Addresser；id 为摘要十六进制的前 idLength 位
func NewAddresser(algorithm string, idLength int) (*Addresser, error) {
	sum, ok := digests[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgo, algorithm)
	}
	if idLength < MinIDLength || idLength > MaxIDLength {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidIDLen, idLength, MinIDLength, MaxIDLength)
	}
	return &Addresser{algorithm: algorithm, length: idLength, sum: sum}, nil
}

// ID 计算 asset_id
func (a *Addresser) ID(data []byte) string {
	digest := a.sum(data)
	return hex.EncodeToString(digest[:])[:a.length]
}

// Valid 判断字符串是否可能是本 Addresser 产生的 id
func (a *Addresser) Valid(id string) bool {
	if len(id) != a.length {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Algorithm 返回算法名
func (a *Addresser) Algorithm() string {
	return a.algorithm
}

// BlobKey 返回 blob 的存储键：assets/{id[:2]}/{id}
func BlobKey(id string) string {
	return fmt.Sprintf("assets/%s/%s", id[:2], id)
}
