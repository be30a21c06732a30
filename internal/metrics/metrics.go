// Package metrics emits operational counters to CloudWatch. Every call is
// best-effort: a metrics failure is logged and never propagated to the
// request path.
package metrics

import (
	"context"
	"log/slog"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws"
)

// Metric names.
const (
	MetricOrdersCreated       = "OrdersCreated"
	MetricOrdersRejected      = "OrdersRejected"
	MetricStockConflictRetry  = "StockConflictRetries"
	MetricNotificationFailure = "NotificationPublishFailures"
)

// Recorder publishes counters under one namespace. A nil *Recorder is valid
// and drops everything, so callers never need to guard.
type Recorder struct {
	client    aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewRecorder returns a Recorder bound to a CloudWatch namespace.
func NewRecorder(client aws.CloudWatchAPI, namespace string) *Recorder {
	return &Recorder{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count adds 1 to the named metric with optional dimensions.
func (r *Recorder) Count(ctx context.Context, name string, dimensions map[string]string) {
	if r == nil || r.client == nil {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: &name,
		Timestamp:  sdkaws.Time(r.nowFunc()),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
	}
	for k, v := range dimensions {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  sdkaws.String(k),
			Value: sdkaws.String(v),
		})
	}

	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &r.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		slog.Warn("metric publish failed", "metric", name, "error", err)
	}
}

// OrderCreated counts a successfully placed order.
func (r *Recorder) OrderCreated(ctx context.Context) {
	r.Count(ctx, MetricOrdersCreated, nil)
}

// OrderRejected counts a validation rejection by reason.
func (r *Recorder) OrderRejected(ctx context.Context, reason string) {
	r.Count(ctx, MetricOrdersRejected, map[string]string{"Reason": reason})
}

// StockConflictRetry counts one lost stock transaction that was retried.
func (r *Recorder) StockConflictRetry(ctx context.Context) {
	r.Count(ctx, MetricStockConflictRetry, nil)
}

// NotificationFailure counts a failed order-placed publish.
func (r *Recorder) NotificationFailure(ctx context.Context) {
	r.Count(ctx, MetricNotificationFailure, nil)
}
