//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package linkinput

import (
	"fmt"

	"github.com/torbrenner/SecureEpilinker/linkconfig"
)

// ClientInput is the query side's input: one record and the database
// cardinality the client was told, so the per-field vector can be
// replicated NVals times inside the circuit.
type ClientInput struct {
	Record map[string]Entry
	NVals  int
}

// ServerInput is the database side's input: one column per field, each
// of length NVals.
type ServerInput struct {
	Database map[string][]Entry
	NVals    int
}

const (
	opValidateClient = "linkinput.ValidateClient"
	opValidateServer = "linkinput.ValidateServer"
)

// ValidateClient checks input against cfg: every configured field must
// have an entry, and every present entry's bitmask must have the exact
// byte length its field's bit width demands.
func ValidateClient(cfg *linkconfig.LinkConfig, input ClientInput) error {
	if input.NVals == 0 {
		return linkconfig.NewError(linkconfig.EmptyDatabase, opValidateClient, nil)
	}
	for _, name := range cfg.FieldNames() {
		f, _ := cfg.Field(name)
		entry, ok := input.Record[name]
		if !ok {
			return linkconfig.NewError(linkconfig.ShapeMismatch, opValidateClient,
				fmt.Errorf("missing entry for field %q", name))
		}
		if entry.IsPresent() {
			if err := checkBitmaskLen(entry.Value(), f); err != nil {
				return linkconfig.NewError(linkconfig.ShapeMismatch, opValidateClient, err)
			}
		}
	}
	return nil
}

// ValidateServer checks input against cfg: every configured field must
// have a column of exactly NVals entries, and every present entry's
// bitmask must have the exact byte length its field's bit width
// demands.
func ValidateServer(cfg *linkconfig.LinkConfig, input ServerInput) error {
	if input.NVals == 0 {
		return linkconfig.NewError(linkconfig.EmptyDatabase, opValidateServer, nil)
	}
	for _, name := range cfg.FieldNames() {
		f, _ := cfg.Field(name)
		column, ok := input.Database[name]
		if !ok {
			return linkconfig.NewError(linkconfig.ShapeMismatch, opValidateServer,
				fmt.Errorf("missing column for field %q", name))
		}
		if len(column) != input.NVals {
			return linkconfig.NewError(linkconfig.ShapeMismatch, opValidateServer,
				fmt.Errorf("column %q has length %d, expected nvals=%d",
					name, len(column), input.NVals))
		}
		for i, entry := range column {
			if entry.IsPresent() {
				if err := checkBitmaskLen(entry.Value(), f); err != nil {
					return linkconfig.NewError(linkconfig.ShapeMismatch, opValidateServer,
						fmt.Errorf("column %q row %d: %w", name, i, err))
				}
			}
		}
	}
	return nil
}

func checkBitmaskLen(bm Bitmask, f linkconfig.FieldDescriptor) error {
	want := ByteWidth(f.BitWidth)
	if len(bm) != want {
		return fmt.Errorf("field %q: bitmask has %d bytes, expected %d for bit_width=%d",
			f.Name, len(bm), want, f.BitWidth)
	}
	return nil
}
