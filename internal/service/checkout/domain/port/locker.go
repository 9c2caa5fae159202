package port

import "context"

// CheckoutLocker 对同一会话的提交流程做互斥，
// 防止表单重复提交产生重复订单。
type CheckoutLocker interface {
	// Acquire 阻塞直到拿到锁或 ctx 结束，成功时返回释放函数。
	Acquire(ctx context.Context, key string) (release func(), err error)
}
