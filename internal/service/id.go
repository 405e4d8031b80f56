package service

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const idSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// idGenerator 学生 ID 生成器：毫秒时间戳字符串，批量场景追加 5 位 base36 随机后缀
type idGenerator struct {
	now func() time.Time
}

func newIDGenerator() *idGenerator {
	return &idGenerator{now: time.Now}
}

// Base 返回当前毫秒时间戳
func (g *idGenerator) Base() string {
	return strconv.FormatInt(g.now().UnixMilli(), 10)
}

// WithSuffix 返回时间戳 + 随机后缀，降低同一毫秒内批量生成时的冲突概率
func (g *idGenerator) WithSuffix() (string, error) {
	suffix, err := randomBase36(5)
	if err != nil {
		return "", err
	}
	return g.Base() + suffix, nil
}

func randomBase36(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(idSuffixAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = idSuffixAlphabet[n.Int64()]
	}
	return string(buf), nil
}
