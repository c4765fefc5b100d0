package port

import "time"

// MetricsObserver receives pipeline events.
type MetricsObserver interface {
	// OnIngest is called when a document ingest finishes.
	OnIngest(duration time.Duration, fragments int, err error)

	// OnQuery is called when a question has been answered or has failed.
	OnQuery(duration time.Duration, err error)

	// OnProviderCall reports one call to an external provider, labelled by model.
	OnProviderCall(provider, op string, duration time.Duration, err error)

	// OnDocuments reports how many documents are resident.
	OnDocuments(count int)
}

// NoopMetricsObserver discards every event.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnIngest(duration time.Duration, fragments int, err error) {}
func (NoopMetricsObserver) OnQuery(duration time.Duration, err error)                 {}
func (NoopMetricsObserver) OnProviderCall(provider, op string, duration time.Duration, err error) {
}
func (NoopMetricsObserver) OnDocuments(count int) {}
