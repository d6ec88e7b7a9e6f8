package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"toy-rental-pricing/internal/model"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Общее количество запросов к API",
		},
		[]string{"endpoint", "status"},
	)

	RequestHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Длительность обработки запроса",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CalculationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_calculations_total",
			Help: "Количество расчетов цены по тарифу и категории клиента",
		},
		[]string{"tier", "customer_type"},
	)

	AppliedRuleCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_applied_rules_total",
			Help: "Сколько раз сработало каждое правило скидки",
		},
		[]string{"rule"},
	)
)

var initOnce sync.Once

// Init - регистрация метрик (повторный вызов безопасен)
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestHistogram, CalculationCounter, AppliedRuleCounter)
	})
}

// Calculations - учет расчетов для сервиса цен
type Calculations struct{}

func (Calculations) ObserveCalculation(tier model.Tier, customerType model.CustomerType, rules []string) {
	CalculationCounter.WithLabelValues(string(tier), string(customerType)).Inc()
	for _, rule := range rules {
		AppliedRuleCounter.WithLabelValues(rule).Inc()
	}
}
