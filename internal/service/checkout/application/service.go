// internal/service/checkout/application/service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
	"storefront/internal/service/checkout/validation"
)

// CheckoutService 只关注结账流程编排：
// 购物车检查 → 表单校验 → 客户/地址 lookup-or-create → 订单落库
// → （可选）支付 → 订单后收尾步骤。
// 所有外部依赖都通过构造参数显式传入，不存在全局容器。
type CheckoutService struct {
	baskets   domain.BasketStore
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	addresses domain.AddressRepository
	gateway   port.PaymentGateway
	notifier  port.OrderNotifier
	locker    port.CheckoutLocker
	form      *validation.Form
	tracer    trace.Tracer

	// requirePayment 统一了两种结账形态：要求支付凭据并扣款，
	// 或仅落库订单（paid 恒为 false）。
	requirePayment    bool
	processingTimeout time.Duration
}

func NewCheckoutService(
	baskets domain.BasketStore,
	orders domain.OrderRepository,
	customers domain.CustomerRepository,
	addresses domain.AddressRepository,
	gateway port.PaymentGateway,
	notifier port.OrderNotifier,
	locker port.CheckoutLocker,
	form *validation.Form,
	tracer trace.Tracer,
	requirePayment bool,
) *CheckoutService {
	return &CheckoutService{
		baskets: baskets, orders: orders,
		customers: customers, addresses: addresses,
		gateway: gateway, notifier: notifier, locker: locker,
		form: form, tracer: tracer,
		requirePayment:    requirePayment,
		processingTimeout: 30 * time.Second,
	}
}

// ShowCheckout 是结账页入口：购物车为空时返回 ErrEmptyBasket，
// 由接口层重定向回购物车页；否则返回渲染上下文。
func (s *CheckoutService) ShowCheckout(ctx context.Context, sessionID string) (*CheckoutPage, error) {
	ctx, span := s.tracer.Start(ctx, "app.ShowCheckout")
	defer span.End()

	basket, err := s.baskets.Fetch(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if basket.IsEmpty() {
		return nil, domain.ErrEmptyBasket
	}
	return &CheckoutPage{Items: basket.Items, SubTotalCents: basket.SubTotalCents()}, nil
}

// ViewBasket 返回购物车内容，空购物车不报错。
func (s *CheckoutService) ViewBasket(ctx context.Context, sessionID string) (*CheckoutPage, error) {
	basket, err := s.baskets.Fetch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &CheckoutPage{Items: basket.Items, SubTotalCents: basket.SubTotalCents()}, nil
}

// AddBasketItem 向会话购物车追加商品。
func (s *CheckoutService) AddBasketItem(ctx context.Context, sessionID, productID string, quantity int) error {
	return s.baskets.Add(ctx, sessionID, productID, quantity)
}

// SubmitOrder 是提交结账的业务入口。
//
// 错误契约：
//   - domain.ErrEmptyBasket / domain.ErrPaymentNonceMissing —— 前置检查失败，无任何副作用；
//   - *validation.Error —— 表单校验失败，携带字段错误映射，无任何副作用；
//   - port.ErrPaymentDeclined —— 订单已落库并标记为 PAYMENT_FAILED，购物车不清空。
func (s *CheckoutService) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.SubmitOrder")
	defer span.End()

	// 为每次提交设置独立的超时，防止外部调用卡死请求
	ctx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	// 同一会话的提交互斥，抵御表单重复提交
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "checkout-"+req.SessionID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		defer release()
	}

	// 1. 重新读取购物车。渲染结账页之后购物车可能已被改动，
	// 这里必须再次检查，防御过期表单提交。
	basket, err := s.baskets.Fetch(ctx, req.SessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if basket.IsEmpty() {
		return nil, domain.ErrEmptyBasket
	}

	// 2. 支付开启时，缺少支付凭据直接拒绝，订单不会创建
	if s.requirePayment && req.PaymentMethodNonce == "" {
		return nil, domain.ErrPaymentNonceMissing
	}

	// 3. 表单校验。错误全部累积并原样上抛，由接口层呈现给用户
	if result := s.form.Validate(req.formValues()); result.Failed() {
		span.AddEvent("Form validation failed.")
		return nil, &validation.Error{Result: result}
	}

	// 4. 客户与地址的 lookup-or-create 互不依赖，并行执行
	var customer *domain.Customer
	var address *domain.Address
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customer, err = s.customers.FirstOrCreate(gctx, req.Email, req.Name)
		return err
	})
	g.Go(func() error {
		var err error
		address, err = s.addresses.FirstOrCreate(gctx, domain.Address{
			Address1:   req.Address1,
			Address2:   req.Address2,
			City:       req.City,
			PostalCode: req.PostalCode,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to resolve customer/address")
		return nil, err
	}

	// 5. 创建订单实体并连同行项目一起落库（单事务）
	order, err := domain.NewOrder(basket, customer, address)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist order")
		return nil, err
	}
	span.AddEvent("Order persisted with PENDING_PAYMENT state.")
	span.SetAttributes(
		attribute.String("order.hash", order.Hash),
		attribute.Int64("order.total_cents", order.TotalCents),
	)

	// 6. 扣款。失败时订单保留为 PAYMENT_FAILED 等待对账，
	// 购物车不清空，让用户可以换一种支付方式重试。
	if s.requirePayment {
		_, err := s.gateway.Sale(ctx, &port.SaleRequest{
			AmountCents:         order.TotalCents,
			PaymentMethodNonce:  req.PaymentMethodNonce,
			SubmitForSettlement: true,
		})
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order", order.Hash).Msg("Payment capture failed, order kept for reconciliation.")
			span.RecordError(err)
			span.SetStatus(codes.Error, "Payment capture failed")

			order.MarkPaymentFailed()
			if updateErr := s.orders.MarkPaymentFailed(ctx, order); updateErr != nil {
				logger.Ctx(ctx).Error().Err(updateErr).Str("order", order.Hash).Msg("CRITICAL: failed to record payment failure")
				span.RecordError(updateErr, trace.WithAttributes(attribute.Bool("critical.error", true)))
			}
			return nil, err
		}

		if err := order.MarkAsPaid(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := s.orders.MarkPaid(ctx, order); err != nil {
			// 钱已扣、状态没写上：必须醒目地记录下来等待对账
			logger.Ctx(ctx).Error().Err(err).Str("order", order.Hash).Msg("CRITICAL: captured payment but failed to mark order as paid")
			span.RecordError(err, trace.WithAttributes(attribute.Bool("critical.error", true)))
			return nil, err
		}
		span.AddEvent("Payment captured, order marked as PAID.")
	}

	// 7. 订单后收尾步骤。显式的顺序列表，而不是事件总线；
	// 这里的失败只记录，绝不让已成功的订单请求失败。
	s.runPostOrderSteps(ctx, req.SessionID, customer, order)

	logger.Ctx(ctx).Info().Str("order", order.Hash).Int64("total_cents", order.TotalCents).Msg("Checkout completed.")
	return &SubmitOrderResponse{
		OrderHash:  order.Hash,
		TotalCents: order.TotalCents,
		State:      order.State,
	}, nil
}

// runPostOrderSteps 执行订单创建成功后的收尾：清空购物车、发布事件。
func (s *CheckoutService) runPostOrderSteps(ctx context.Context, sessionID string, customer *domain.Customer, order *domain.Order) {
	if err := s.baskets.Clear(ctx, sessionID); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("session", sessionID).Msg("Failed to clear basket after order creation.")
	}

	if s.notifier != nil {
		event := &domain.OrderPlaced{
			OrderHash:     order.Hash,
			CustomerEmail: customer.Email,
			TotalCents:    order.TotalCents,
			Paid:          order.Paid,
			PlacedAt:      time.Now(),
		}
		if err := s.notifier.OrderPlaced(ctx, event); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order", order.Hash).Msg("Failed to publish order placed event.")
		}
	}
}
