package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"QuantPredict/internal/domain/models"
	domrepo "QuantPredict/internal/domain/repository"
	pkgch "QuantPredict/pkg/clickhouse"
	pkgkafka "QuantPredict/pkg/kafka"
)

// CHForecastSink appends forecasts to the forecasts table.
type CHForecastSink struct {
	db    *sql.DB
	table string
}

var _ domrepo.ForecastSink = (*CHForecastSink)(nil)

func NewCHForecastSink(ch *pkgch.Client) *CHForecastSink {
	return &CHForecastSink{db: ch.DB(), table: ch.Database() + ".forecasts"}
}

func (s *CHForecastSink) StoreForecast(ctx context.Context, ev models.ForecastEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, symbol, kind, horizon, dates, predicted, actual, rmse, mae, r2, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	if _, err := s.db.ExecContext(ctx, q, forecastArgs(ev)...); err != nil {
		return fmt.Errorf("insert forecast: %w", err)
	}
	return nil
}

func forecastArgs(ev models.ForecastEvent) []interface{} {
	id, err := uuid.Parse(ev.ID)
	if err != nil {
		id = uuid.New()
	}
	var r2 interface{}
	if ev.R2 != nil {
		r2 = *ev.R2
	}
	return []interface{}{
		id,
		ev.Symbol,
		ev.Kind,
		uint16(ev.Horizon),
		ev.Dates,
		ev.Predicted,
		ev.Actual,
		ev.RMSE,
		ev.MAE,
		r2,
		ev.CreatedAt,
	}
}

// KafkaForecastPublisher publishes ForecastEvent JSON keyed by symbol.
type KafkaForecastPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.ForecastPublisher = (*KafkaForecastPublisher)(nil)

func NewKafkaForecastPublisher(producer *pkgkafka.Producer, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) PublishForecast(ctx context.Context, ev models.ForecastEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaForecastPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
