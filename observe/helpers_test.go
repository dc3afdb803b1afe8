package observe

import (
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/docstore/request"
)

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func findPost(id string) *request.Request {
	req, _ := request.FindRecord("post", id, request.FindRecordOptions{})
	return req
}
