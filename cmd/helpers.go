package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/stanza-labs/refdata-cli/internal/refdata"
)

// initManager builds a manager from the loaded configuration and runs one
// acquisition pass.
func initManager(ctx context.Context, opts ...refdata.Option) (*refdata.Manager, error) {
	m := refdata.NewManager(opts...)
	if err := m.Initialize(ctx, cfg.Sources.ToRefdata()); err != nil {
		return nil, err
	}
	return m, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
