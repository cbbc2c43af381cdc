package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Métricas de negócio
	TransactionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wasteledger_transactions_created_total",
		Help: "Total de transações abertas",
	})

	TransactionsFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wasteledger_transactions_finalized_total",
		Help: "Total de transações finalizadas",
	})

	ItemsAppendedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wasteledger_items_appended_total",
		Help: "Itens registrados por origem do peso",
	}, []string{"weight_source"})

	CalibrationResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wasteledger_calibration_results_total",
		Help: "Resultados de calibração",
	}, []string{"result"})

	DuplicateIDCollisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wasteledger_duplicate_transaction_id_total",
		Help: "Colisões de ID de transação detectadas na inserção",
	})

	// Reconhecimento de peso
	RecognitionAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wasteledger_recognition_attempts_total",
		Help: "Tentativas de reconhecimento por provedor e resultado",
	}, []string{"provider", "outcome"})

	RecognitionProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wasteledger_recognition_provider_latency_seconds",
		Help:    "Latência de cada provedor de reconhecimento",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	RecognitionPipelineTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wasteledger_recognition_pipeline_total",
		Help: "Resultado final da cadeia de reconhecimento",
	}, []string{"outcome"})

	// Métricas de infraestrutura
	DatabaseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wasteledger_database_latency_seconds",
		Help:    "Latência de queries no banco",
		Buckets: prometheus.DefBuckets,
	})
)
