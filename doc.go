// Package simcore is the backend core of a hacking-simulation game.  It
// tracks long-running player operations as supervised in-memory processes,
// admits them against per-server resource capacity and notifies registered
// listeners of every lifecycle change.
//
// The package exposes a high-level Service façade wiring together the
// pluggable layers:
//
//   - registry  – process lifecycle state machine and multi-index lookup
//   - allocator – per-server capacity accounting and admission control
//   - listener  – callback registry keyed by object and event name
//   - executor  – per-type process behaviors stepped each simulation tick
//   - actor     – mailbox actors with supervision and restart strategies
//
// Typical embedding:
//
//	srv := simcore.New(simcore.WithCatalogBaseURL("file:///opt/game/content"))
//	rt := srv.Runtime()
//	_ = rt.LoadCatalog(ctx, "catalog.yaml")
//	_ = rt.Start(ctx)
//	p, _ := rt.StartProcess(ctx, "player-1", "gateway-1", process.TypeCracker)
//	_ = rt.CancelProcess(ctx, p.ID)
//
// For details see the individual sub-packages.
package simcore
