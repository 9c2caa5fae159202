package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"storefront/internal/service/checkout/application"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
	"storefront/internal/service/checkout/validation"
)

const serviceName = "checkout-service"

var (
	ordersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Number of orders successfully created.",
	})
	checkoutFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Number of rejected or failed checkout submissions by reason.",
	}, []string{"reason"})
)

// CheckoutHandler 封装了 checkout 服务的 HTTP 处理器
type CheckoutHandler struct {
	service       *application.CheckoutService
	sessionCookie string
}

// NewCheckoutHandler 创建一个新的 HTTP 处理器实例
func NewCheckoutHandler(service *application.CheckoutService, sessionCookie string) *CheckoutHandler {
	return &CheckoutHandler{service: service, sessionCookie: sessionCookie}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/order", h.orderHandler)
	mux.HandleFunc("/cart", h.showBasketHandler)
	mux.HandleFunc("/cart/items", h.addBasketItemHandler)
}

func (h *CheckoutHandler) orderHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.showCheckoutHandler(w, r)
	case http.MethodPost:
		h.createOrderHandler(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// showCheckoutHandler 渲染结账页上下文。购物车为空时重定向回购物车页。
func (h *CheckoutHandler) showCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	page, err := h.service.ShowCheckout(ctx, h.sessionID(r))
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBasket) {
			http.Redirect(w, r, "/cart", http.StatusSeeOther)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// createOrderHandler 处理结账提交。
func (h *CheckoutHandler) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "checkout-service.CreateOrderHandler")
	defer span.End()

	req := &application.SubmitOrderRequest{
		SessionID:          h.sessionID(r),
		Name:               r.PostFormValue("name"),
		Email:              r.PostFormValue("email"),
		Address1:           r.PostFormValue("address1"),
		Address2:           r.PostFormValue("address2"),
		City:               r.PostFormValue("city"),
		PostalCode:         r.PostFormValue("postal_code"),
		PaymentMethodNonce: r.PostFormValue("payment_method_nonce"),
	}
	span.SetAttributes(attribute.String("checkout.session", req.SessionID))

	resp, err := h.service.SubmitOrder(ctx, req)
	if err != nil {
		// 根据错误类型返回不同的 HTTP 状态码
		var validationErr *validation.Error
		switch {
		case errors.Is(err, domain.ErrEmptyBasket):
			checkoutFailuresTotal.WithLabelValues("empty_basket").Inc()
			http.Redirect(w, r, "/cart", http.StatusSeeOther)
		case errors.Is(err, domain.ErrPaymentNonceMissing):
			checkoutFailuresTotal.WithLabelValues("missing_nonce").Inc()
			http.Redirect(w, r, "/order", http.StatusSeeOther)
		case errors.As(err, &validationErr):
			// 字段错误随响应呈现给用户，而不是静默丢弃
			checkoutFailuresTotal.WithLabelValues("validation").Inc()
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"errors": validationErr.Result.Errors,
			})
		case errors.Is(err, port.ErrPaymentDeclined):
			checkoutFailuresTotal.WithLabelValues("payment_declined").Inc()
			writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
				"error": "payment was declined",
			})
		default:
			checkoutFailuresTotal.WithLabelValues("internal").Inc()
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	ordersCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, resp)
}

// showBasketHandler 返回购物车内容，是空购物车重定向的落点。
func (h *CheckoutHandler) showBasketHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	page, err := h.service.ViewBasket(ctx, h.sessionID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// addBasketItemHandler 向会话购物车追加商品，会话不存在时签发新会话。
func (h *CheckoutHandler) addBasketItemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	sessionID := h.sessionID(r)
	if sessionID == "" {
		sessionID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     h.sessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
		})
	}

	quantity := 1 // 默认数量
	if raw := r.PostFormValue("quantity"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "quantity must be a positive integer", http.StatusBadRequest)
			return
		}
		quantity = parsed
	}

	err := h.service.AddBasketItem(ctx, sessionID, r.PostFormValue("product_id"), quantity)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session": sessionID})
}

// sessionID 从 Cookie 解析会话标识，query 参数作为无 Cookie 客户端的兜底。
func (h *CheckoutHandler) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(h.sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("session")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
