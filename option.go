package simcore

import (
	"github.com/viant/afs/storage"
	"github.com/viant/x"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/model/types"
	"github.com/hackwire/simcore/service/catalog"
	"github.com/hackwire/simcore/service/event"
	"github.com/hackwire/simcore/service/executor"
	"github.com/hackwire/simcore/service/messaging"
	"github.com/hackwire/simcore/supervisor"
	"github.com/hackwire/simcore/tracing"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger overrides the logger used across all components.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithQueue sets the lifecycle event queue.
func WithQueue(queue messaging.Queue[event.Event]) Option {
	return func(s *Service) { s.queue = queue }
}

// WithCatalog sets a pre-built content catalog.
func WithCatalog(service *catalog.Service) Option {
	return func(s *Service) { s.catalog = service }
}

// WithCatalogBaseURL sets the base URL catalog documents are loaded from.
func WithCatalogBaseURL(url string) Option {
	return func(s *Service) { s.catalogBaseURL = url }
}

// WithCatalogFsOptions sets storage options for catalog loading, such as an
// embedded filesystem.
func WithCatalogFsOptions(options ...storage.Option) Option {
	return func(s *Service) { s.catalogFsOptions = options }
}

// WithExtensionTypes registers data types usable by behaviors.
func WithExtensionTypes(goTypes ...*x.Type) Option {
	return func(s *Service) { s.extensionTypes = goTypes }
}

// WithBehaviors registers additional behavior services.
func WithBehaviors(services ...types.Service) Option {
	return func(s *Service) { s.behaviorServices = services }
}

// WithExecutorOptions passes options to the behavior executor.
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) { s.executorOptions = append(s.executorOptions, opts...) }
}

// WithDispatchFunc sets the callback invoked for every triggered listener.
func WithDispatchFunc(dispatch event.DispatchFunc) Option {
	return func(s *Service) { s.dispatch = dispatch }
}

// WithGroupStrategy sets how supervised agent siblings react to a failure.
func WithGroupStrategy(strategy supervisor.GroupStrategy) Option {
	return func(s *Service) { s.groupStrategy = strategy }
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter;
// when outputFile is empty traces go to standard output.  Only the first
// successful initialisation takes effect.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom span
// exporter, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
