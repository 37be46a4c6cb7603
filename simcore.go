package simcore

import (
	"context"

	"github.com/viant/afs/storage"
	"github.com/viant/x"

	"github.com/hackwire/simcore/extension"
	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/types"
	"github.com/hackwire/simcore/service/allocator"
	"github.com/hackwire/simcore/service/behavior/crack"
	"github.com/hackwire/simcore/service/behavior/logforge"
	"github.com/hackwire/simcore/service/behavior/timed"
	"github.com/hackwire/simcore/service/behavior/transfer"
	"github.com/hackwire/simcore/service/catalog"
	"github.com/hackwire/simcore/service/event"
	"github.com/hackwire/simcore/service/executor"
	"github.com/hackwire/simcore/service/listener"
	"github.com/hackwire/simcore/service/messaging"
	mmemory "github.com/hackwire/simcore/service/messaging/memory"
	"github.com/hackwire/simcore/service/registry"
	"github.com/hackwire/simcore/supervisor"
)

// Service is the engine façade that wires the allocator, the process
// registry, the listener registry, the event pipeline and the behavior
// executor together.
type Service struct {
	runtime *Runtime
	config  *Config
	logger  logging.Logger

	behaviors        *extension.Behaviors
	extensionTypes   []*x.Type
	behaviorServices []types.Service
	executorOptions  []executor.Option

	queue    messaging.Queue[event.Event]
	catalog  *catalog.Service
	dispatch event.DispatchFunc

	catalogBaseURL   string
	catalogFsOptions []storage.Option
	groupStrategy    supervisor.GroupStrategy
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.behaviors = extension.NewBehaviors(s.extensionTypes...)
	s.behaviors.Register(crack.New())
	s.behaviors.Register(logforge.New())
	s.behaviors.Register(transfer.New())
	s.behaviors.Register(timed.New(string(process.TypeInstall), 10))
	s.behaviors.Register(timed.New(string(process.TypeVirusCollect), 20))
	s.behaviors.Register(timed.New(string(process.TypeBankTransfer), 25))
	for _, service := range s.behaviorServices {
		s.behaviors.Register(service)
	}

	s.runtime.executor = executor.New(s.behaviors, s.executorOptions...)
	s.runtime.queue = s.queue
	s.runtime.publisher = event.NewPublisher(s.queue, s.logger)
	s.runtime.dispatcher = event.NewDispatcher(s.queue, s.runtime.listeners, s.dispatch, s.logger)
	s.runtime.registry = registry.New(
		registry.WithConfig(s.config.Registry),
		registry.WithAllocator(s.runtime.allocator),
		registry.WithPublisher(s.runtime.publisher),
		registry.WithLogger(s.logger),
	)
	s.runtime.supervisor = supervisor.New(
		supervisor.WithGroupStrategy(s.groupStrategy),
		supervisor.WithLogger(s.logger),
	)
	s.runtime.catalog = s.catalog
	s.runtime.config = s.config
	s.runtime.logger = s.logger
	s.runtime.shutdownCh = make(chan struct{})
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.logger == nil {
		s.logger = logging.Default("simcore")
	}
	if s.queue == nil {
		s.queue = mmemory.NewQueue[event.Event](s.config.Events)
	}
	if s.catalog == nil {
		s.catalog = catalog.New(s.catalogBaseURL, s.catalogFsOptions...)
	}
	if s.groupStrategy == "" {
		s.groupStrategy = supervisor.OneForOne
	}
	if s.dispatch == nil {
		logger := s.logger
		s.dispatch = func(_ context.Context, info listener.CallbackInfo) error {
			logger.Debugf("callback %s.%s for %s on %s", info.Module, info.Method, info.Event, info.ObjectID)
			return nil
		}
	}
	s.runtime.allocator = allocator.New(allocator.WithLogger(s.logger))
	s.runtime.listeners = listener.New()
}

// RegisterBehaviors adds behavior services after construction.
func (s *Service) RegisterBehaviors(services ...types.Service) {
	for i := range services {
		s.behaviors.Register(services[i])
	}
}

// RegisterExtensionTypes registers data types usable by behaviors.
func (s *Service) RegisterExtensionTypes(goTypes ...*x.Type) {
	for i := range goTypes {
		s.behaviors.Types().Register(goTypes[i])
	}
}

// Runtime returns the runtime façade.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates the engine service.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}
