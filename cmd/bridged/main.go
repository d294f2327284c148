package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/hostval"
	"github.com/edgelet/hostbridge/runtime"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to asyncified guest wasm file")
		event       = flag.String("event", "fetch", "Event kind: fetch, scheduled or queue")
		url         = flag.String("url", "https://example.com/", "Request URL (fetch events)")
		method      = flag.String("method", "GET", "Request method (fetch events)")
		body        = flag.String("body", "", "Request body")
		envVars     = flag.String("env", "", "Environment bindings (KEY=VAL,KEY2=VAL2)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: bridged -wasm <file.wasm> [-event fetch|scheduled|queue] [-url URL] [-body DATA] [-env K=V,...]")
		fmt.Fprintln(os.Stderr, "       bridged -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*wasmFile, parseEnv(*envVars)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *event, *url, *method, *body, *envVars, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseEnv(s string) map[string]string {
	env := make(map[string]string)
	if s == "" {
		return env
	}
	for _, kv := range strings.Split(s, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	return env
}

func buildPayload(event runtime.Event, url, method, body string) *hostval.Object {
	payload := hostval.NewObject()
	switch event {
	case runtime.EventFetch:
		payload.Set("url", url)
		payload.Set("method", method)
		if body != "" {
			payload.Set("body", body)
		}
	case runtime.EventQueue:
		if body != "" {
			payload.Set("body", body)
		}
	}
	return payload
}

func run(wasmFile, eventStr, url, method, body, envStr string, verbose bool) error {
	ctx := context.Background()

	cfg, err := runtime.LoadConfig()
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer log.Sync()
	}

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt, err := runtime.New(ctx, data, cfg, parseEnv(envStr), log)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	event := runtime.Event(eventStr)
	fmt.Printf("Dispatching %s event to %s...\n", event, wasmFile)

	result, err := rt.Dispatch(ctx, event, buildPayload(event, url, method, body))
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	text, err := hostval.Stringify(result)
	if err != nil {
		text = fmt.Sprintf("%v", result)
	}
	fmt.Printf("Result: %s\n", text)

	stats := rt.Stats()
	fmt.Printf("Heap: %d live / %d slots (max %d)\n", stats.Live, stats.Slots, stats.MaxSlots)
	return nil
}
