package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stealthrocket/offcraft/internal/worker"
	"github.com/stealthrocket/offcraft/offchain"
	"github.com/stealthrocket/offcraft/offchain/offchaintest"
)

func TestSpawnRejectsInvalidBytecode(t *testing.T) {
	ctx := context.Background()

	_, err := worker.Spawn(ctx, []byte("not webassembly"), offchain.Unavailable())
	if err == nil {
		t.Fatal("expected invalid bytecode to be rejected")
	}
}

// TestWorkers runs every guest program found in testdata against a
// deterministic capability backend. The host-call wire contract itself
// is covered by the handler tests in internal/wasm.
func TestWorkers(t *testing.T) {
	files, err := filepath.Glob("testdata/*.wasm")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Skip("no guest programs under testdata")
	}

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			bytecode, err := os.ReadFile(file)
			if err != nil {
				t.Fatal(err)
			}
			ctx := context.Background()

			backend := offchaintest.New()
			backend.Respond("GET", "http://worker.test/", offchaintest.Response{
				Status: 200,
				Body:   []byte("ok"),
			})

			session, err := worker.Spawn(ctx, bytecode, backend)
			if err != nil {
				t.Fatal(err)
			}
			defer session.Close(ctx)

			if err := session.Run(ctx); err != nil {
				t.Fatal(err)
			}
		})
	}
}
