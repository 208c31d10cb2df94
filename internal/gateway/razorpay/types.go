package razorpay

// Статусы платежа на стороне шлюза. Доступ открывается только по
// captured: авторизованный, но не списанный платёж — не финал.
const (
	PaymentStatusCaptured   = "captured"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusFailed     = "failed"
)

// CreateOrderRequest представляет запрос на создание ордера.
type CreateOrderRequest struct {
	Amount         int64             `json:"amount"`   // сумма в минорных единицах (пайсы)
	Currency       string            `json:"currency"` // валюта, например "INR"
	Receipt        string            `json:"receipt"`  // детерминированный чек: sub_<uid>_<ms>
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"` // user_id, subscription_type, plan_name
}

// Order представляет созданный ордер шлюза.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment представляет платёж, полученный от шлюза по идентификатору.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"` // в минорных единицах
	Currency string `json:"currency"`
}
