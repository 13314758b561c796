package report

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/alexanderjulianmartinez/recon-watch/internal/recon"
)

// MismatchEvent is the JSON payload published per mismatched chunk, so
// downstream consumers can open follow-up inspection on the chunk.
type MismatchEvent struct {
	RunID      string `json:"run_id"`
	Schema     string `json:"schema"`
	Table      string `json:"table"`
	ChunkID    int    `json:"chunk_id"`
	SourceSum  uint64 `json:"chunk_sum_src"`
	TargetSum  uint64 `json:"chunk_sum_tgt"`
	SourceRows int64  `json:"rows_in_chunk_src"`
	TargetRows int64  `json:"rows_in_chunk_tgt"`
}

// KafkaPublisher emits one MismatchEvent per mismatch record to a topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, runID string, mismatches []recon.MismatchRecord) error {
	if len(mismatches) == 0 {
		return nil
	}
	msgs, err := mismatchMessages(runID, mismatches)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish mismatch events: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// mismatchMessages keys each message by schema.table so one table's chunks
// land in one partition, in order.
func mismatchMessages(runID string, mismatches []recon.MismatchRecord) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(mismatches))
	for _, m := range mismatches {
		ev := MismatchEvent{
			RunID:      runID,
			Schema:     m.Schema,
			Table:      m.Table,
			ChunkID:    m.ChunkID,
			SourceSum:  m.SourceSum,
			TargetSum:  m.TargetSum,
			SourceRows: m.SourceRows,
			TargetRows: m.TargetRows,
		}
		val, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("encode mismatch event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(m.Schema + "." + m.Table),
			Value: val,
		})
	}
	return msgs, nil
}
