// Package pagefetch is a generic engine for draining paginated HTTP APIs
// into a single, schema-stable row set.
//
// It combines two collaborators:
//
// 1. A retry executor (pkg/retry) that runs each page request under an
// attempt budget with exponential backoff and jitter, distinguishing
// transient failures (network errors, 429s, 5xxs) from hard ones (403,
// 404), which fail immediately.
//
// 2. A fetch engine (pkg/paginate) that drives a page producer to
// completion, strictly sequentially, merging pages into one result. The
// first non-empty page fixes the field set; later pages are conformed to
// it, with extra fields dropped and absent fields filled with a Missing
// marker distinct from an explicit null.
//
// Producers for common pagination styles (offset/limit, continuation
// tokens, next-page links, GraphQL connections) live in pkg/connector/rest,
// together with JSON and NDJSON page decoding. pkg/httpx supplies the HTTP
// transport in manual status handling mode, plus a token bucket rate
// limiter; pkg/auth covers API keys, bearer tokens, basic auth and OAuth2
// token sources.
//
// # Quick Start
//
//	client := httpx.NewClient(nil, logger)
//	source, _ := rest.NewSource(rest.SourceOptions{
//	    Strategy:  rest.LinkStrategy{BaseURL: "https://api.example.com/items"},
//	    Decode:    rest.DecodeConfig{Format: rest.FormatJSON},
//	    Transport: client,
//	})
//	engine := paginate.NewEngine(paginate.EngineConfig{}, logger)
//	result, err := engine.FetchAll(ctx, source.Producer())
//
// The pagefetch CLI (cmd/pagefetch) wires the same pieces together from a
// YAML job configuration and writes the rows out as NDJSON or CSV, with
// optional gzip or zstd compression.
package pagefetch
