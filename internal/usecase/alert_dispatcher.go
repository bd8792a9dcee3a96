package usecase

import (
	"context"
	"fmt"

	"FlowTrack/internal/domain/models"
	pkghttp "FlowTrack/pkg/http"
	applogger "FlowTrack/pkg/logger"
	"FlowTrack/pkg/queue"
)

const alertMsgType = "flow_alert"

// AlertDispatcher turns HIGH-conviction signals into FlowAlerts and
// enqueues them for webhook delivery. It runs as a detector subscriber,
// so a slow webhook never touches the ingestion path.
type AlertDispatcher struct {
	q   queue.QueueService
	l   *applogger.Logger
	sub int
}

// NewAlertDispatcher creates a dispatcher publishing to the alert queue.
func NewAlertDispatcher(q queue.QueueService, l *applogger.Logger) *AlertDispatcher {
	return &AlertDispatcher{q: q, l: l}
}

// Attach subscribes the dispatcher to the detector.
func (d *AlertDispatcher) Attach(ctx context.Context, det *FlowDetector) {
	d.sub = det.Subscribe(func(sig *models.FlowSignal) {
		d.onSignal(ctx, sig)
	})
}

// Detach unsubscribes from the detector.
func (d *AlertDispatcher) Detach(det *FlowDetector) {
	if d.sub != 0 {
		det.Unsubscribe(d.sub)
		d.sub = 0
	}
}

func (d *AlertDispatcher) onSignal(ctx context.Context, sig *models.FlowSignal) {
	if sig.ConvictionLevel != models.ConvictionHigh {
		return
	}

	priority := 1
	if sig.ConvictionScore >= 90 || sig.Metrics.PremiumClass == models.PremiumMegaWhale {
		priority = 2
	}
	alert := models.NewFlowAlert(sig, priority)

	if err := d.q.PublishMessage(ctx, alertMsgType, alert); err != nil {
		if d.l != nil {
			d.l.Error("alert enqueue failed",
				applogger.String("signal_id", sig.ID),
				applogger.Error(err),
			)
		}
	}
}

// WebhookAlertJob delivers queued FlowAlerts to a configured webhook.
type WebhookAlertJob struct {
	client *pkghttp.Client
	url    string
	l      *applogger.Logger
}

// NewWebhookAlertJob creates the queue job for alert delivery.
func NewWebhookAlertJob(client *pkghttp.Client, url string, l *applogger.Logger) *WebhookAlertJob {
	return &WebhookAlertJob{client: client, url: url, l: l}
}

func (j *WebhookAlertJob) Name() string { return "webhook_alert" }
func (j *WebhookAlertJob) Type() string { return alertMsgType }

// Handle posts the alert payload to the webhook.
func (j *WebhookAlertJob) Handle(ctx context.Context, payload interface{}) error {
	alert, err := queue.ParsePayload[models.FlowAlert](payload)
	if err != nil {
		return fmt.Errorf("parse alert payload: %w", err)
	}

	err = j.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    j.url,
		Body:   alert,
	}, nil)
	if err != nil {
		return fmt.Errorf("deliver alert %s: %w", alert.AlertID, err)
	}

	if j.l != nil {
		j.l.Info("alert delivered",
			applogger.String("alert_id", alert.AlertID),
			applogger.String("signal_id", alert.Signal.ID),
			applogger.Int("priority", alert.Priority),
		)
	}
	return nil
}

var _ queue.Job = (*WebhookAlertJob)(nil)
