//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package linkinput

import (
	"errors"
	"testing"

	"github.com/torbrenner/SecureEpilinker/linkconfig"
)

func testConfig(t *testing.T) *linkconfig.LinkConfig {
	t.Helper()
	fields := []linkconfig.FieldDescriptor{
		{Name: "bm_1", Weight: 1, Comparator: linkconfig.SetSimilarity, BitWidth: 8},
	}
	cfg, err := linkconfig.New(fields, nil, 0.9, 0.7, false, 32)
	if err != nil {
		t.Fatalf("linkconfig.New: %v", err)
	}
	return cfg
}

func TestValidateClientMissingField(t *testing.T) {
	cfg := testConfig(t)
	err := ValidateClient(cfg, ClientInput{Record: map[string]Entry{}, NVals: 1})
	if !errors.Is(err, linkconfig.ErrShapeMismatch) {
		t.Fatalf("expected ShapeMismatch, got %v", err)
	}
}

func TestValidateClientWrongBitmaskLength(t *testing.T) {
	cfg := testConfig(t)
	err := ValidateClient(cfg, ClientInput{
		Record: map[string]Entry{"bm_1": Present(Bitmask{1, 2})},
		NVals:  1,
	})
	if !errors.Is(err, linkconfig.ErrShapeMismatch) {
		t.Fatalf("expected ShapeMismatch, got %v", err)
	}
}

func TestValidateClientEmptyDatabase(t *testing.T) {
	cfg := testConfig(t)
	err := ValidateClient(cfg, ClientInput{Record: map[string]Entry{"bm_1": Missing()}, NVals: 0})
	if !errors.Is(err, linkconfig.ErrEmptyDatabase) {
		t.Fatalf("expected EmptyDatabase, got %v", err)
	}
}

func TestValidateClientOK(t *testing.T) {
	cfg := testConfig(t)
	err := ValidateClient(cfg, ClientInput{
		Record: map[string]Entry{"bm_1": Present(Bitmask{0xFF})},
		NVals:  3,
	})
	if err != nil {
		t.Fatalf("ValidateClient: %v", err)
	}
}

func TestValidateServerColumnLengthMismatch(t *testing.T) {
	cfg := testConfig(t)
	err := ValidateServer(cfg, ServerInput{
		Database: map[string][]Entry{"bm_1": {Missing()}},
		NVals:    2,
	})
	if !errors.Is(err, linkconfig.ErrShapeMismatch) {
		t.Fatalf("expected ShapeMismatch, got %v", err)
	}
}

func TestValidateServerOK(t *testing.T) {
	cfg := testConfig(t)
	err := ValidateServer(cfg, ServerInput{
		Database: map[string][]Entry{"bm_1": {Present(Bitmask{0x0F}), Missing()}},
		NVals:    2,
	})
	if err != nil {
		t.Fatalf("ValidateServer: %v", err)
	}
}

func TestEntryDelta(t *testing.T) {
	if Missing().Delta() != 0 {
		t.Fatal("Missing().Delta() != 0")
	}
	if Present(Bitmask{1}).Delta() != 1 {
		t.Fatal("Present(...).Delta() != 1")
	}
}
