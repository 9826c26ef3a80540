//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/phonix/internal/catalog"
	"github.com/MeKo-Tech/phonix/internal/filter"
)

// filterChain is called from JavaScript with a JSON parameter object and
// returns the CSS filter string plus the preview-only glow shadow.
// Missing fields keep their identity value; out of range values are clamped.
func filterChain(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "missing arguments"}
	}

	var u filter.Update
	if err := json.Unmarshal([]byte(args[0].String()), &u); err != nil {
		return map[string]any{"error": fmt.Sprintf("failed to parse parameters: %v", err)}
	}
	params := filter.Identity().Merge(u)

	return map[string]any{
		"css":  filter.CSS(filter.Chain(params)),
		"glow": filter.GlowCSS(params),
	}
}

// presets returns one page of a category as JSON, so the picker can page
// through the catalog without a server round trip.
func presets(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "missing arguments"}
	}
	page := 0
	if len(args) > 1 {
		page = args[1].Int()
	}

	p, err := catalog.Default().Page(args[0].String(), page, catalog.DefaultPageSize)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return string(data)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("phonixFilterChain", js.FuncOf(filterChain))
	js.Global().Set("phonixPresets", js.FuncOf(presets))

	fmt.Println("Phonix WASM module loaded", "presets:", catalog.Default().Len())
	<-c
}
