// Package logsink provides collaborators that only log what they would have done. The worker falls back to them
// when no chat, ERP or journal backend is configured.
package logsink

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"replenishment-service/internal/gateway"
	"replenishment-service/internal/modal"
)

type AlertPublisher struct {
	log *zap.Logger
}

func NewAlertPublisher(log *zap.Logger) *AlertPublisher {
	return &AlertPublisher{log: log}
}

func (p *AlertPublisher) Post(ctx context.Context, channel string, body modal.AlertBody) (gateway.AlertReceipt, error) {
	p.log.Info("alert",
		zap.String("channel", channel),
		zap.String("title", body.Title),
		zap.String("doc_vs_need", body.DocVsNeed),
		zap.String("suggestion", body.Suggestion),
	)
	return gateway.AlertReceipt{MessageID: "msg-" + slug(body.Title)}, nil
}

type OrderWriter struct {
	log *zap.Logger
}

func NewOrderWriter(log *zap.Logger) *OrderWriter {
	return &OrderWriter{log: log}
}

func (w *OrderWriter) CreateDraft(ctx context.Context, req gateway.DraftRequest) (gateway.PurchaseOrder, error) {
	po := gateway.PurchaseOrder{
		POID:   fmt.Sprintf("PO-%s-%s-%d", req.SKUID, req.LocationID, req.Qty),
		Status: "DRAFT",
	}
	w.log.Info("draft purchase order",
		zap.String("po_id", po.POID),
		zap.String("sku_id", req.SKUID),
		zap.String("location_id", req.LocationID),
		zap.Int("qty", req.Qty),
		zap.String("notes", req.Notes),
	)
	return po, nil
}

type JournalWriter struct {
	log *zap.Logger
}

func NewJournalWriter(log *zap.Logger) *JournalWriter {
	return &JournalWriter{log: log}
}

func (j *JournalWriter) Log(ctx context.Context, eventType string, rec modal.Record) (gateway.JournalReceipt, error) {
	fields := []zap.Field{
		zap.String("event_type", eventType),
		zap.String("sku_id", rec.SKUID),
		zap.String("location_id", rec.LocationID),
	}
	if rec.Features != nil {
		fields = append(fields, zap.Float64("risk", rec.Features.Risk))
	}
	j.log.Info("journal", fields...)
	return gateway.JournalReceipt{JournalID: fmt.Sprintf("jrnl-%s-%s", rec.SKUID, rec.LocationID)}, nil
}

func slug(s string) string {
	return strings.Join(strings.Fields(s), "-")
}
