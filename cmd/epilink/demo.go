//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package main

import (
	"fmt"
	"io"

	"github.com/torbrenner/SecureEpilinker/linkconfig"
	"github.com/torbrenner/SecureEpilinker/linkinput"
)

// demoConfig returns a small, fixed two-field schema (a set-similarity
// name field and an exact-match birth-year field) representative of the
// kind of record-linkage configuration a real deployment would load from
// its own configuration store; there is no JSON ingestion layer here
// (an explicit Non-goal), so the CLI's demo mode builds the schema
// programmatically.
func demoConfig() (*linkconfig.LinkConfig, error) {
	fields := []linkconfig.FieldDescriptor{
		{Name: "name", Weight: 1.0, Comparator: linkconfig.SetSimilarity, BitWidth: 32, TypeHint: "bloomfilter"},
		{Name: "birthyear", Weight: 0.8, Comparator: linkconfig.Equality, BitWidth: 16, TypeHint: "integer"},
	}
	return linkconfig.New(fields, nil, 0.9, 0.7, false, 32)
}

// demoDatabase fabricates a synthetic database of n rows and a single
// query record that exactly matches row 0, so a demo run always reports
// a match without requiring any real data on disk.
func demoDatabase(rnd io.Reader, n int) (linkinput.ClientInput, linkinput.ServerInput, error) {
	if n <= 0 {
		return linkinput.ClientInput{}, linkinput.ServerInput{},
			fmt.Errorf("epilink: --dbsize must be positive, got %d", n)
	}

	nameCol := make([]linkinput.Entry, n)
	yearCol := make([]linkinput.Entry, n)

	queryName := linkinput.NewBitmask(32)
	if _, err := io.ReadFull(rnd, queryName); err != nil {
		return linkinput.ClientInput{}, linkinput.ServerInput{}, err
	}
	queryYear := linkinput.Bitmask{0x07, 0xE6} // 2022, big-endian bytes

	nameCol[0] = linkinput.Present(append(linkinput.Bitmask(nil), queryName...))
	yearCol[0] = linkinput.Present(append(linkinput.Bitmask(nil), queryYear...))

	for i := 1; i < n; i++ {
		other := linkinput.NewBitmask(32)
		if _, err := io.ReadFull(rnd, other); err != nil {
			return linkinput.ClientInput{}, linkinput.ServerInput{}, err
		}
		nameCol[i] = linkinput.Present(other)
		year := linkinput.NewBitmask(16)
		if _, err := io.ReadFull(rnd, year); err != nil {
			return linkinput.ClientInput{}, linkinput.ServerInput{}, err
		}
		yearCol[i] = linkinput.Present(year)
	}

	client := linkinput.ClientInput{
		Record: map[string]linkinput.Entry{
			"name":      linkinput.Present(queryName),
			"birthyear": linkinput.Present(queryYear),
		},
		NVals: n,
	}
	server := linkinput.ServerInput{
		Database: map[string][]linkinput.Entry{
			"name":      nameCol,
			"birthyear": yearCol,
		},
		NVals: n,
	}
	return client, server, nil
}
