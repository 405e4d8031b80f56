// Package view 考勤看板与花名册管理的视图模型，状态全部来自 client 仓库
package view

import (
	"sync"
	"time"
)

// DefaultBannerTTL 成功提示自动消失的时间
const DefaultBannerTTL = 3 * time.Second

// Banner 状态提示条
// 成功提示在 ttl 后自动清除；错误提示保留到被覆盖或手动关闭
type Banner struct {
	ttl time.Duration

	mu      sync.Mutex
	text    string
	isError bool
	gen     uint64
	timer   *time.Timer
}

func NewBanner(ttl time.Duration) *Banner {
	if ttl <= 0 {
		ttl = DefaultBannerTTL
	}
	return &Banner{ttl: ttl}
}

// Success 显示成功提示并重置自动消失计时
func (b *Banner) Success(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(text, false)

	gen := b.gen
	b.timer = time.AfterFunc(b.ttl, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// 期间若已显示新内容则不清除
		if b.gen == gen {
			b.text, b.isError = "", false
		}
	})
}

// Error 显示错误提示
func (b *Banner) Error(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(text, true)
}

// Dismiss 立即关闭
func (b *Banner) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set("", false)
}

// Current 返回当前文案及是否为错误
func (b *Banner) Current() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, b.isError
}

func (b *Banner) set(text string, isError bool) {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	b.text, b.isError = text, isError
}
