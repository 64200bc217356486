// Package limiter 实现了按客户端的固定窗口配额控制。
package limiter

import (
	"sync"
	"time"
)

// Kind 区分受配额约束的操作类型。
type Kind string

const (
	KindRequest Kind = "request"
	KindSearch  Kind = "search"
)

// Limits 定义各窗口的配额上限。零值或负值表示该维度不限制。
type Limits struct {
	RequestsPerMinute int
	RequestsPerHour   int
	SearchesPerHour   int
}

// Limiter 维护进程内的配额计数。计数不跨进程持久化，启动时全部归零。
type Limiter struct {
	mu      sync.Mutex
	limits  Limits
	clients map[string]*clientWindows
	now     func() time.Time
}

// window 是一个固定时间窗口内的单调计数，窗口以时钟边界对齐。
type window struct {
	start time.Time
	count int
}

type clientWindows struct {
	requestMinute window
	requestHour   window
	searchHour    window
}

// New 创建一个新的 Limiter。
func New(limits Limits) *Limiter {
	return &Limiter{
		limits:  limits,
		clients: make(map[string]*clientWindows),
		now:     time.Now,
	}
}

// Allow 判断 clientID 的一次 kind 操作是否在配额内。
// 允许时计数递增；任一适用窗口超限则拒绝且不产生任何计数副作用。
func (l *Limiter) Allow(clientID string, kind Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cw, ok := l.clients[clientID]
	if !ok {
		cw = &clientWindows{}
		l.clients[clientID] = cw
	}

	now := l.now()
	switch kind {
	case KindSearch:
		cw.searchHour.roll(now, time.Hour)
		if exceeded(cw.searchHour.count, l.limits.SearchesPerHour) {
			return false
		}
		cw.searchHour.count++
		return true
	default:
		cw.requestMinute.roll(now, time.Minute)
		cw.requestHour.roll(now, time.Hour)
		if exceeded(cw.requestMinute.count, l.limits.RequestsPerMinute) ||
			exceeded(cw.requestHour.count, l.limits.RequestsPerHour) {
			return false
		}
		cw.requestMinute.count++
		cw.requestHour.count++
		return true
	}
}

// roll 在跨越窗口边界时重置计数。
func (w *window) roll(now time.Time, dur time.Duration) {
	boundary := now.Truncate(dur)
	if !w.start.Equal(boundary) {
		w.start = boundary
		w.count = 0
	}
}

// exceeded 判断再计一次是否会超过上限；limit <= 0 视为不限制。
func exceeded(count, limit int) bool {
	return limit > 0 && count >= limit
}
