package simcore_test

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	_ "github.com/viant/afs/embed"

	"github.com/hackwire/simcore"
	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/resource"
	"github.com/hackwire/simcore/policy"
	"github.com/hackwire/simcore/progress"
	"github.com/hackwire/simcore/service/listener"
)

//go:embed testdata/*
var embedFS embed.FS

func newService(options ...simcore.Option) *simcore.Service {
	base := []simcore.Option{
		simcore.WithCatalogFsOptions(&embedFS),
		simcore.WithCatalogBaseURL("embed:///testdata"),
		simcore.WithLogger(logging.Nop()),
	}
	return simcore.New(append(base, options...)...)
}

func TestRuntime_StartProcessFromCatalog(t *testing.T) {
	ctx := context.Background()
	srv := newService()
	runtime := srv.Runtime()
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))

	p, err := runtime.StartProcess(ctx, "player-1", "gateway-1", process.TypeCracker)
	assert.Nil(t, err)
	assert.Equal(t, process.StatusRunning, p.StatusValue())
	assert.Equal(t, resource.New(800, 1024), p.Granted)
	assert.NotNil(t, p.ScheduledCompletion)

	_, used, _, err := runtime.Usage("gateway-1")
	assert.Nil(t, err)
	assert.Equal(t, resource.New(800, 1024), used)
}

func TestRuntime_RepeatedCancelFreesOnce(t *testing.T) {
	ctx := context.Background()
	srv := newService()
	runtime := srv.Runtime()
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))

	p, err := runtime.StartProcess(ctx, "player-1", "gateway-1", process.TypeGeneric)
	assert.Nil(t, err)
	assert.Equal(t, resource.New(150, 32), p.Granted)

	// Three concurrent-looking cancel requests; the first marks the
	// process, the rest are no-ops and none frees resources yet.
	for i := 0; i < 3; i++ {
		assert.Nil(t, runtime.CancelProcess(ctx, p.ID))
	}
	assert.Equal(t, process.StatusCancelling, p.StatusValue())
	_, used, _, _ := runtime.Usage("gateway-1")
	assert.Equal(t, resource.New(150, 32), used)

	runtime.Tick(ctx)

	assert.Equal(t, process.StatusCancelled, p.StatusValue())
	_, used, _, _ = runtime.Usage("gateway-1")
	assert.True(t, used.IsZero())
	_, err = runtime.Process(p.ID)
	assert.NotNil(t, err)

	// Cancelling an already removed process is still fine.
	assert.Nil(t, runtime.CancelProcess(ctx, p.ID))
}

func TestRuntime_QueueWhenBusy(t *testing.T) {
	ctx := context.Background()
	srv := newService()
	runtime := srv.Runtime()
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))

	first, err := runtime.StartProcess(ctx, "player-1", "gateway-1", process.TypeCracker)
	assert.Nil(t, err)
	second, err := runtime.StartProcess(ctx, "player-2", "gateway-1", process.TypeCracker)
	assert.Nil(t, err)
	// 2000 cpu hosts two crackers but not three; the third queues.
	third, err := runtime.StartProcess(ctx, "player-3", "gateway-1", process.TypeCracker)
	assert.Nil(t, err)
	assert.Equal(t, process.StatusRunning, first.StatusValue())
	assert.Equal(t, process.StatusRunning, second.StatusValue())
	assert.Equal(t, process.StatusQueued, third.StatusValue())

	assert.Nil(t, runtime.KillProcess(ctx, first.ID))
	runtime.Tick(ctx)
	assert.Equal(t, process.StatusRunning, third.StatusValue())
}

func TestRuntime_RejectWhenQueueingDisabled(t *testing.T) {
	ctx := context.Background()
	config := simcore.DefaultConfig()
	config.Simulation.QueueWhenBusy = false
	srv := newService(simcore.WithConfig(config))
	runtime := srv.Runtime()
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))

	_, err := runtime.StartProcess(ctx, "player-1", "gateway-1", process.TypeCracker)
	assert.Nil(t, err)
	_, err = runtime.StartProcess(ctx, "player-2", "gateway-1", process.TypeCracker)
	assert.Nil(t, err)
	_, err = runtime.StartProcess(ctx, "player-3", "gateway-1", process.TypeCracker)
	assert.NotNil(t, err)
}

func TestRuntime_Listeners(t *testing.T) {
	ctx := context.Background()
	srv := newService()
	runtime := srv.Runtime()
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))

	p, err := runtime.StartProcess(ctx, "player-1", "gateway-1", process.TypeFileTransfer)
	assert.Nil(t, err)

	id, err := runtime.AddListener("process:"+p.ID, "completed", listener.Callback{
		Module: "mission",
		Method: "onHackDone",
	})
	assert.Nil(t, err)
	assert.NotEmpty(t, id)
	assert.Nil(t, runtime.RemoveListener(id))
	assert.NotNil(t, runtime.RemoveListener(id))
}

func TestRuntime_PauseResume(t *testing.T) {
	ctx := context.Background()
	srv := newService()
	runtime := srv.Runtime()
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))

	p, err := runtime.StartProcess(ctx, "player-1", "gateway-1", process.TypeFileTransfer)
	assert.Nil(t, err)
	assert.Nil(t, runtime.PauseProcess(ctx, p.ID))
	assert.Equal(t, process.StatusPaused, p.StatusValue())

	// Paused processes keep their reservation.
	_, used, _, _ := runtime.Usage("gateway-1")
	assert.Equal(t, resource.New(200, 256), used)

	assert.Nil(t, runtime.ResumeProcess(ctx, p.ID))
	assert.Equal(t, process.StatusRunning, p.StatusValue())
}

func TestRuntime_PolicyBlocksAdmission(t *testing.T) {
	ctx := context.Background()
	srv := newService()
	runtime := srv.Runtime()
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))

	blocked := policy.WithPolicy(ctx, &policy.Policy{BlockList: []string{"cracker"}})
	_, err := runtime.StartProcess(blocked, "player-1", "gateway-1", process.TypeCracker)
	assert.NotNil(t, err)

	_, err = runtime.StartProcess(blocked, "player-1", "gateway-1", process.TypeFileTransfer)
	assert.Nil(t, err)
}

func TestRuntime_ProgressTracking(t *testing.T) {
	srv := newService()
	runtime := srv.Runtime()
	ctx, tracker := progress.WithNewTracker(context.Background(), "session-1", nil)
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))

	p, err := runtime.StartProcess(ctx, "player-1", "gateway-1", process.TypeGeneric)
	assert.Nil(t, err)

	snapshot := tracker.Snapshot()
	assert.Equal(t, 1, snapshot.TotalProcesses)
	assert.Equal(t, 1, snapshot.RunningProcesses)

	assert.Nil(t, runtime.CancelProcess(ctx, p.ID))
	runtime.Tick(ctx)

	snapshot = tracker.Snapshot()
	assert.Equal(t, 0, snapshot.RunningProcesses)
	assert.Equal(t, 1, snapshot.CancelledProcesses)
}

func TestRuntime_StartAndShutdown(t *testing.T) {
	ctx := context.Background()
	srv := newService()
	runtime := srv.Runtime()
	assert.Nil(t, runtime.LoadCatalog(ctx, "catalog.yaml"))
	assert.Nil(t, runtime.Start(ctx))
	assert.Nil(t, runtime.Shutdown(ctx))
}
