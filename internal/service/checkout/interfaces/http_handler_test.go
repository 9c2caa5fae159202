package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"storefront/internal/service/checkout/application"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
	"storefront/internal/service/checkout/validation"
)

const testSessionCookie = "basket_session"

type stubBasketStore struct {
	baskets map[string]*domain.Basket
	added   []string
}

func (s *stubBasketStore) Fetch(ctx context.Context, sessionID string) (*domain.Basket, error) {
	if basket, ok := s.baskets[sessionID]; ok {
		return basket, nil
	}
	return &domain.Basket{SessionID: sessionID}, nil
}

func (s *stubBasketStore) Add(ctx context.Context, sessionID, productID string, quantity int) error {
	if productID == "missing" {
		return domain.ErrProductNotFound
	}
	s.added = append(s.added, productID)
	return nil
}

func (s *stubBasketStore) Clear(ctx context.Context, sessionID string) error {
	delete(s.baskets, sessionID)
	return nil
}

type stubCustomerRepo struct{}

func (stubCustomerRepo) FirstOrCreate(ctx context.Context, email, name string) (*domain.Customer, error) {
	return &domain.Customer{ID: 1, Email: email, Name: name}, nil
}

type stubAddressRepo struct{}

func (stubAddressRepo) FirstOrCreate(ctx context.Context, address domain.Address) (*domain.Address, error) {
	address.ID = 1
	return &address, nil
}

type stubOrderRepo struct {
	orders []*domain.Order
}

func (r *stubOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	order.ID = uint(len(r.orders) + 1)
	r.orders = append(r.orders, order)
	return nil
}

func (r *stubOrderRepo) FindByHash(ctx context.Context, hash string) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (r *stubOrderRepo) MarkPaid(ctx context.Context, order *domain.Order) error { return nil }

func (r *stubOrderRepo) MarkPaymentFailed(ctx context.Context, order *domain.Order) error {
	return nil
}

type stubGateway struct {
	err error
}

func (g *stubGateway) Sale(ctx context.Context, req *port.SaleRequest) (*port.SaleResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &port.SaleResult{TransactionID: "txn-1"}, nil
}

type handlerFixture struct {
	baskets *stubBasketStore
	orders  *stubOrderRepo
	gateway *stubGateway
	mux     *http.ServeMux
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	form, err := validation.Compile(validation.OrderForm())
	require.NoError(t, err)

	f := &handlerFixture{
		baskets: &stubBasketStore{baskets: make(map[string]*domain.Basket)},
		orders:  &stubOrderRepo{},
		gateway: &stubGateway{},
		mux:     http.NewServeMux(),
	}
	service := application.NewCheckoutService(
		f.baskets, f.orders, stubCustomerRepo{}, stubAddressRepo{},
		f.gateway, nil, nil, form,
		otel.Tracer("test"), true,
	)
	NewCheckoutHandler(service, testSessionCookie).RegisterRoutes(f.mux)
	return f
}

func (f *handlerFixture) stockBasket(sessionID string) {
	f.baskets.baskets[sessionID] = &domain.Basket{
		SessionID: sessionID,
		Items: []domain.BasketItem{
			{ProductID: "p1", Name: "Widget", UnitPriceCents: 1000, Quantity: 2},
			{ProductID: "p2", Name: "Gadget", UnitPriceCents: 500, Quantity: 1},
		},
	}
}

func validOrderForm() url.Values {
	return url.Values{
		"name":                 {"Jane Doe"},
		"email":                {"jane@example.com"},
		"address1":             {"1 Main Street"},
		"city":                 {"Springfield"},
		"postal_code":          {"AB1 2CD"},
		"payment_method_nonce": {"fake-valid-nonce"},
	}
}

func formRequest(method, target, sessionID string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: sessionID})
	}
	return req
}

func TestShowCheckout_EmptyBasketRedirects(t *testing.T) {
	f := newHandlerFixture(t)

	req := formRequest(http.MethodGet, "/order", "sess-1", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))
}

func TestShowCheckout_ReturnsPage(t *testing.T) {
	f := newHandlerFixture(t)
	f.stockBasket("sess-1")

	req := formRequest(http.MethodGet, "/order", "sess-1", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page application.CheckoutPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(2500), page.SubTotalCents)
	assert.Len(t, page.Items, 2)
}

func TestCreateOrder_Success(t *testing.T) {
	f := newHandlerFixture(t)
	f.stockBasket("sess-1")

	req := formRequest(http.MethodPost, "/order", "sess-1", validOrderForm())
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp application.SubmitOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.OrderHash, 64)
	assert.Equal(t, int64(3000), resp.TotalCents)
	assert.Equal(t, domain.StatePaid, resp.State)
	assert.Len(t, f.orders.orders, 1)
}

func TestCreateOrder_EmptyBasketRedirects(t *testing.T) {
	f := newHandlerFixture(t)

	req := formRequest(http.MethodPost, "/order", "sess-1", validOrderForm())
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrder_MissingNonceRedirects(t *testing.T) {
	f := newHandlerFixture(t)
	f.stockBasket("sess-1")

	form := validOrderForm()
	form.Del("payment_method_nonce")
	req := formRequest(http.MethodPost, "/order", "sess-1", form)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/order", rec.Header().Get("Location"))
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	f := newHandlerFixture(t)
	f.stockBasket("sess-1")

	form := validOrderForm()
	form.Set("email", "not-an-email")
	req := formRequest(http.MethodPost, "/order", "sess-1", form)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Email must be a valid email address"}, body.Errors["email"])
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrder_PaymentDeclined(t *testing.T) {
	f := newHandlerFixture(t)
	f.stockBasket("sess-1")
	f.gateway.err = port.ErrPaymentDeclined

	req := formRequest(http.MethodPost, "/order", "sess-1", validOrderForm())
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	// 订单已落库等待对账
	require.Len(t, f.orders.orders, 1)
	assert.Equal(t, domain.StatePaymentFailed, f.orders.orders[0].State)
}

func TestAddBasketItem_MintsSession(t *testing.T) {
	f := newHandlerFixture(t)

	form := url.Values{"product_id": {"p1"}, "quantity": {"2"}}
	req := formRequest(http.MethodPost, "/cart/items", "", form)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testSessionCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.Equal(t, []string{"p1"}, f.baskets.added)
}

func TestAddBasketItem_RejectsInvalidQuantity(t *testing.T) {
	f := newHandlerFixture(t)

	for _, quantity := range []string{"-2", "0", "abc"} {
		form := url.Values{"product_id": {"p1"}, "quantity": {quantity}}
		req := formRequest(http.MethodPost, "/cart/items", "sess-1", form)
		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "quantity=%s", quantity)
	}
	assert.Empty(t, f.baskets.added)
}

func TestAddBasketItem_DefaultsQuantityToOne(t *testing.T) {
	f := newHandlerFixture(t)

	form := url.Values{"product_id": {"p1"}}
	req := formRequest(http.MethodPost, "/cart/items", "sess-1", form)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"p1"}, f.baskets.added)
}

func TestAddBasketItem_UnknownProduct(t *testing.T) {
	f := newHandlerFixture(t)

	form := url.Values{"product_id": {"missing"}}
	req := formRequest(http.MethodPost, "/cart/items", "sess-1", form)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewBasket_EmptyOK(t *testing.T) {
	f := newHandlerFixture(t)

	req := formRequest(http.MethodGet, "/cart", "sess-1", nil)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page application.CheckoutPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Items)
}
