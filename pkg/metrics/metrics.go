// Package metrics 基于Prometheus的指标
//
// 指标挂在 *Metrics 上, 通过构造函数注入到各组件, 不使用包级全局变量.
// 生产环境注册到 prometheus.DefaultRegisterer, 测试用独立的 Registry.
//
// 命名约定:
//   - Counter 以 _total 结尾
//   - Histogram 以单位结尾(_seconds)
//   - 标签只用有限取值的维度(status、result、type), 不用user_id/order_id
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookstore"

// Metrics 所有业务与基础设施指标
type Metrics struct {
	// HTTP
	HTTPRequestsTotal      *prometheus.CounterVec   // method, path, status
	HTTPRequestDuration    *prometheus.HistogramVec // method, path
	HTTPRequestsInProgress prometheus.Gauge

	// 订单
	OrdersCreatedTotal    prometheus.Counter
	OrdersFailedTotal     *prometheus.CounterVec // reason
	OrderCreationDuration prometheus.Histogram
	OrderTransitionsTotal *prometheus.CounterVec // to

	// 库存
	StockReservationsTotal *prometheus.CounterVec // result: reserved/out_of_stock/not_found

	// 钱包
	WalletTransactionsTotal *prometheus.CounterVec // type
	WalletAmountTotal       *prometheus.CounterVec // type, 金额累计(元)
	BatchPayResultsTotal    *prometheus.CounterVec // result

	// 超时订单清理
	SweeperRunsTotal      *prometheus.CounterVec // result: ok/error
	SweeperOrdersReleased prometheus.Counter
	SweeperOrderFailures  prometheus.Counter
	SweeperLastRun        prometheus.Gauge

	// 熔断器
	CircuitBreakerState    *prometheus.GaugeVec   // name, 0=CLOSED 1=OPEN 2=HALF_OPEN
	CircuitBreakerRequests *prometheus.CounterVec // name, result: success/failure/rejected

	// 消息
	MessagesPublishedTotal *prometheus.CounterVec // routing_key, result
}

// New 创建并注册指标
// reg为nil时注册到默认Registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求总数",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求耗时(秒)",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		}, []string{"method", "path"}),
		HTTPRequestsInProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_progress",
			Help:      "正在处理的HTTP请求数",
		}),

		OrdersCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "订单创建总数",
		}),
		OrdersFailedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_failed_total",
			Help:      "订单创建失败总数",
		}, []string{"reason"}),
		OrderCreationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_creation_duration_seconds",
			Help:      "订单创建耗时(秒)",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		OrderTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "订单状态迁移次数",
		}, []string{"to"}),

		StockReservationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservations_total",
			Help:      "库存预留次数",
		}, []string{"result"}),

		WalletTransactionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_transactions_total",
			Help:      "钱包流水笔数",
		}, []string{"type"}),
		WalletAmountTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_amount_total",
			Help:      "钱包流水金额累计(绝对值)",
		}, []string{"type"}),
		BatchPayResultsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_pay_results_total",
			Help:      "批量支付中每个订单的结果",
		}, []string{"result"}),

		SweeperRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_runs_total",
			Help:      "超时订单清理执行次数",
		}, []string{"result"}),
		SweeperOrdersReleased: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_orders_released_total",
			Help:      "清理掉的超时订单数",
		}),
		SweeperOrderFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_order_failures_total",
			Help:      "清理失败的超时订单数",
		}),
		SweeperLastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweeper_last_run_timestamp_seconds",
			Help:      "最近一次清理的时间戳",
		}),

		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "熔断器状态(0=CLOSED, 1=OPEN, 2=HALF_OPEN)",
		}, []string{"name"}),
		CircuitBreakerRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "熔断器请求总数",
		}, []string{"name", "result"}),

		MessagesPublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "领域事件发布次数",
		}, []string{"routing_key", "result"}),
	}
}

// NewNop 注册到一次性Registry, 供测试和不暴露指标的场景使用
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
