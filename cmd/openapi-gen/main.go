// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/darcy-ai/darcy/internal/crew"
	"github.com/darcy-ai/darcy/internal/provider"
	"github.com/darcy-ai/darcy/internal/routing"
	"github.com/darcy-ai/darcy/internal/server"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

func main() {
	doc, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/openapi.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, doc, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing document: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI document written to %s\n", outPath)
}

// generateSpec builds a gateway server with stub services and returns the
// OpenAPI document huma derives from the route types.
func generateSpec() ([]byte, error) {
	crews, err := crew.Builtin()
	if err != nil {
		return nil, darcyerr.Wrap(err, darcyerr.CodeCLISetupFailure, "loading crews")
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, &server.Services{
		Chat:      stubChat{},
		Providers: stubProviders{},
		Prober:    stubProber{},
		Priority:  stubPriority{},
		Crews:     crews,
	})
	if err != nil {
		return nil, darcyerr.Errorf(darcyerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// Handlers are never invoked during generation.

type stubChat struct{}

func (stubChat) Chat(context.Context, routing.ChatRequest) (routing.Outcome, error) {
	return routing.Outcome{}, nil
}

type stubProviders struct{}

func (stubProviders) Snapshots() []provider.Snapshot { return nil }

type stubProber struct{}

func (stubProber) RunAllProbes(context.Context) map[string]bool { return nil }

type stubPriority struct{}

func (stubPriority) DynamicPriority(snap provider.Snapshot) int { return snap.Descriptor.BasePriority }
