package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
)

type captureCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (c *captureCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.inputs = append(c.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, c.err
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	ctx := context.Background()
	// must not panic
	r.OrderCreated(ctx)
	r.OrderRejected(ctx, "empty_order")
	r.StockConflictRetry(ctx)
	r.NotificationFailure(ctx)
}

func TestCountPublishesDatum(t *testing.T) {
	cw := &captureCloudWatch{}
	r := NewRecorder(cw, "ArtisanMarketplace")

	r.OrderRejected(context.Background(), "insufficient_stock")

	if len(cw.inputs) != 1 {
		t.Fatalf("expected one publish, got %d", len(cw.inputs))
	}
	in := cw.inputs[0]
	if *in.Namespace != "ArtisanMarketplace" {
		t.Fatalf("unexpected namespace %q", *in.Namespace)
	}
	datum := in.MetricData[0]
	if *datum.MetricName != MetricOrdersRejected || *datum.Value != 1 {
		t.Fatalf("unexpected datum: %+v", datum)
	}
	if len(datum.Dimensions) != 1 || *datum.Dimensions[0].Value != "insufficient_stock" {
		t.Fatalf("expected reason dimension, got %+v", datum.Dimensions)
	}
}

func TestCountSwallowsPublishFailure(t *testing.T) {
	cw := &captureCloudWatch{err: errors.New("throttled")}
	r := NewRecorder(cw, "ArtisanMarketplace")
	// must not panic or propagate
	r.OrderCreated(context.Background())
}
