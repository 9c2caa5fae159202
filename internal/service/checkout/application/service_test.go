package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
	"storefront/internal/service/checkout/validation"
)

// --- in-memory fakes ---

type fakeBasketStore struct {
	mu      sync.Mutex
	baskets map[string]*domain.Basket
	cleared []string
}

func newFakeBasketStore() *fakeBasketStore {
	return &fakeBasketStore{baskets: make(map[string]*domain.Basket)}
}

func (s *fakeBasketStore) Fetch(ctx context.Context, sessionID string) (*domain.Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if basket, ok := s.baskets[sessionID]; ok {
		return basket, nil
	}
	return &domain.Basket{SessionID: sessionID}, nil
}

func (s *fakeBasketStore) Add(ctx context.Context, sessionID, productID string, quantity int) error {
	return nil
}

func (s *fakeBasketStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.baskets, sessionID)
	s.cleared = append(s.cleared, sessionID)
	return nil
}

type fakeCustomerRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Customer
	nextID  uint
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{byEmail: make(map[string]*domain.Customer)}
}

func (r *fakeCustomerRepo) FirstOrCreate(ctx context.Context, email, name string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if customer, ok := r.byEmail[email]; ok {
		return customer, nil
	}
	r.nextID++
	customer := &domain.Customer{ID: r.nextID, Email: email, Name: name}
	r.byEmail[email] = customer
	return customer, nil
}

type fakeAddressRepo struct {
	mu     sync.Mutex
	nextID uint
}

func (r *fakeAddressRepo) FirstOrCreate(ctx context.Context, address domain.Address) (*domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	address.ID = r.nextID
	return &address, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders []*domain.Order
	nextID uint
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	order.ID = r.nextID
	r.orders = append(r.orders, order)
	return nil
}

func (r *fakeOrderRepo) FindByHash(ctx context.Context, hash string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.Hash == hash {
			return order, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *fakeOrderRepo) MarkPaid(ctx context.Context, order *domain.Order) error {
	return nil
}

func (r *fakeOrderRepo) MarkPaymentFailed(ctx context.Context, order *domain.Order) error {
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []*port.SaleRequest
	err      error
}

func (g *fakeGateway) Sale(ctx context.Context, req *port.SaleRequest) (*port.SaleResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &port.SaleResult{TransactionID: "txn-1"}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*domain.OrderPlaced
}

func (n *fakeNotifier) OrderPlaced(ctx context.Context, event *domain.OrderPlaced) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

// --- fixture ---

type checkoutFixture struct {
	baskets   *fakeBasketStore
	orders    *fakeOrderRepo
	customers *fakeCustomerRepo
	addresses *fakeAddressRepo
	gateway   *fakeGateway
	notifier  *fakeNotifier
	service   *CheckoutService
}

func newCheckoutFixture(t *testing.T, requirePayment bool) *checkoutFixture {
	t.Helper()
	form, err := validation.Compile(validation.OrderForm())
	require.NoError(t, err)

	f := &checkoutFixture{
		baskets:   newFakeBasketStore(),
		orders:    &fakeOrderRepo{},
		customers: newFakeCustomerRepo(),
		addresses: &fakeAddressRepo{},
		gateway:   &fakeGateway{},
		notifier:  &fakeNotifier{},
	}
	f.service = NewCheckoutService(
		f.baskets, f.orders, f.customers, f.addresses,
		f.gateway, f.notifier, nil, form,
		otel.Tracer("test"), requirePayment,
	)
	return f
}

func (f *checkoutFixture) stockBasket(sessionID string) {
	f.baskets.baskets[sessionID] = &domain.Basket{
		SessionID: sessionID,
		Items: []domain.BasketItem{
			{ProductID: "p1", Name: "Widget", UnitPriceCents: 1000, Quantity: 2},
			{ProductID: "p2", Name: "Gadget", UnitPriceCents: 500, Quantity: 1},
		},
	}
}

func validSubmitRequest(sessionID string) *SubmitOrderRequest {
	return &SubmitOrderRequest{
		SessionID:          sessionID,
		Name:               "Jane Doe",
		Email:              "jane@example.com",
		Address1:           "1 Main Street",
		City:               "Springfield",
		PostalCode:         "AB1 2CD",
		PaymentMethodNonce: "fake-valid-nonce",
	}
}

// --- tests ---

func TestSubmitOrder_EmptyBasket(t *testing.T) {
	f := newCheckoutFixture(t, true)

	_, err := f.service.SubmitOrder(context.Background(), validSubmitRequest("sess-1"))

	assert.ErrorIs(t, err, domain.ErrEmptyBasket)
	assert.Empty(t, f.orders.orders)
}

func TestSubmitOrder_MissingPaymentNonce(t *testing.T) {
	f := newCheckoutFixture(t, true)
	f.stockBasket("sess-1")

	req := validSubmitRequest("sess-1")
	req.PaymentMethodNonce = ""
	_, err := f.service.SubmitOrder(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrPaymentNonceMissing)
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.gateway.requests)
}

func TestSubmitOrder_ValidationFailure(t *testing.T) {
	f := newCheckoutFixture(t, true)
	f.stockBasket("sess-1")

	req := validSubmitRequest("sess-1")
	req.Email = "not-an-email"
	req.City = ""
	_, err := f.service.SubmitOrder(context.Background(), req)

	var validationErr *validation.Error
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Result.Errors, "email")
	assert.Contains(t, validationErr.Result.Errors, "city")

	// 校验失败不产生任何副作用
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.baskets.cleared)
	assert.Empty(t, f.gateway.requests)
}

func TestSubmitOrder_WithoutPayment(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.stockBasket("sess-1")

	req := validSubmitRequest("sess-1")
	req.PaymentMethodNonce = ""
	resp, err := f.service.SubmitOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(3000), resp.TotalCents)
	assert.Equal(t, domain.StatePendingPayment, resp.State)
	assert.Len(t, resp.OrderHash, 64)

	require.Len(t, f.orders.orders, 1)
	order := f.orders.orders[0]
	assert.False(t, order.Paid)
	assert.Equal(t, uint(1), order.CustomerID)
	require.Len(t, order.Lines, 2)

	// 支付关闭时网关绝不会被调用
	assert.Empty(t, f.gateway.requests)

	// 收尾步骤：清空购物车并发布事件
	assert.Equal(t, []string{"sess-1"}, f.baskets.cleared)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, order.Hash, f.notifier.events[0].OrderHash)
	assert.Equal(t, "jane@example.com", f.notifier.events[0].CustomerEmail)
	assert.False(t, f.notifier.events[0].Paid)
}

func TestSubmitOrder_WithPayment(t *testing.T) {
	f := newCheckoutFixture(t, true)
	f.stockBasket("sess-1")

	resp, err := f.service.SubmitOrder(context.Background(), validSubmitRequest("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, resp.State)

	// 网关收到的扣款请求必须是订单总价和用户凭据
	require.Len(t, f.gateway.requests, 1)
	saleReq := f.gateway.requests[0]
	assert.Equal(t, int64(3000), saleReq.AmountCents)
	assert.Equal(t, "fake-valid-nonce", saleReq.PaymentMethodNonce)
	assert.True(t, saleReq.SubmitForSettlement)

	require.Len(t, f.orders.orders, 1)
	order := f.orders.orders[0]
	assert.True(t, order.Paid)
	assert.Equal(t, domain.StatePaid, order.State)
	require.NotNil(t, order.PaidAt)

	assert.Equal(t, []string{"sess-1"}, f.baskets.cleared)
	require.Len(t, f.notifier.events, 1)
	assert.True(t, f.notifier.events[0].Paid)
}

func TestSubmitOrder_PaymentDeclined(t *testing.T) {
	f := newCheckoutFixture(t, true)
	f.stockBasket("sess-1")
	f.gateway.err = port.ErrPaymentDeclined

	_, err := f.service.SubmitOrder(context.Background(), validSubmitRequest("sess-1"))
	assert.ErrorIs(t, err, port.ErrPaymentDeclined)

	// 订单保留在库中等待对账，购物车不清空，事件不发布
	require.Len(t, f.orders.orders, 1)
	order := f.orders.orders[0]
	assert.False(t, order.Paid)
	assert.Equal(t, domain.StatePaymentFailed, order.State)
	assert.Empty(t, f.baskets.cleared)
	assert.Empty(t, f.notifier.events)
}

func TestSubmitOrder_ReusesExistingCustomer(t *testing.T) {
	f := newCheckoutFixture(t, false)

	f.stockBasket("sess-1")
	req1 := validSubmitRequest("sess-1")
	req1.PaymentMethodNonce = ""
	_, err := f.service.SubmitOrder(context.Background(), req1)
	require.NoError(t, err)

	f.stockBasket("sess-2")
	req2 := validSubmitRequest("sess-2")
	req2.PaymentMethodNonce = ""
	req2.Name = "J. Doe" // 姓名变了，email 不变
	_, err = f.service.SubmitOrder(context.Background(), req2)
	require.NoError(t, err)

	require.Len(t, f.orders.orders, 2)
	assert.Equal(t, f.orders.orders[0].CustomerID, f.orders.orders[1].CustomerID)
	assert.Len(t, f.customers.byEmail, 1)
}

func TestShowCheckout(t *testing.T) {
	f := newCheckoutFixture(t, true)

	_, err := f.service.ShowCheckout(context.Background(), "sess-1")
	assert.ErrorIs(t, err, domain.ErrEmptyBasket)

	f.stockBasket("sess-1")
	page, err := f.service.ShowCheckout(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), page.SubTotalCents)
	assert.Len(t, page.Items, 2)
}

func TestViewBasket_EmptyIsNotAnError(t *testing.T) {
	f := newCheckoutFixture(t, true)

	page, err := f.service.ViewBasket(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.SubTotalCents)
}
