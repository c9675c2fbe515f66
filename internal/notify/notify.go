package notify

import "context"

// Notifier 为即发即弃的告警通道，失败由实现方自行吞掉，不向调用方传播。
type Notifier interface {
	Notify(ctx context.Context, text string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) {}

// Nop 返回不做任何事情的告警通道。
func Nop() Notifier {
	return nopNotifier{}
}
