// Package worker runs sandboxed guest computations with the offchain
// capability bound as their only source of non-determinism.
package worker

import (
	"context"
	"os"

	"github.com/stealthrocket/wazergo"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/stealthrocket/offcraft/internal/wasm"
	"github.com/stealthrocket/offcraft/offchain"
)

var runtimeConfig = wazero.NewRuntimeConfig().
	WithCloseOnContextDone(true).
	WithCompilationCache(wazero.NewCompilationCache())

// Session is one sandboxed worker: a wazero runtime, the compiled
// guest module, and an instance of the capability module bound to the
// backend chosen at spawn time.
//
// A session occupies one logical thread of execution; the capability
// is called synchronously from the guest and the guest has no other
// way to reach the network or the clock. Note in particular that the
// module is configured without a system wall clock.
type Session struct {
	runtime  wazero.Runtime
	module   wazero.CompiledModule
	offchain *wazergo.ModuleInstance[*wasm.Module]
}

// Spawn compiles bytecode and prepares a session using ext as the
// capability backend. The session takes ownership of ext and closes it
// with the session.
func Spawn(ctx context.Context, bytecode []byte, ext offchain.Externalities) (*Session, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	instance := wazergo.MustInstantiate(ctx, runtime, wasm.HostModule,
		wasm.WithExternalities(ext),
	)

	module, err := runtime.CompileModule(ctx, bytecode)
	if err != nil {
		runtime.Close(ctx)
		return nil, err
	}
	return &Session{runtime, module, instance}, nil
}

// Run instantiates the guest module, which invokes its _start
// function, and tears the instance down when it returns.
func (s *Session) Run(ctx context.Context) error {
	ctx = wazergo.WithModuleInstance(ctx, s.offchain)

	m, err := s.runtime.InstantiateModule(ctx, s.module,
		wazero.NewModuleConfig().
			WithStdout(os.Stdout).
			WithStderr(os.Stderr),
	)
	if err != nil {
		return err
	}
	return m.Close(ctx)
}

func (s *Session) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}
