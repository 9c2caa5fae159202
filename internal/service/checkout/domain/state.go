package domain

// State 定义了订单的生命周期状态
type State string

const (
	StatePendingPayment State = "PENDING_PAYMENT" // 订单已落库，尚未扣款
	StatePaid           State = "PAID"            // 扣款成功
	StatePaymentFailed  State = "PAYMENT_FAILED"  // 扣款被拒或失败，订单保留用于对账
)
