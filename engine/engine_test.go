//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package engine

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/torbrenner/SecureEpilinker/env"
	"github.com/torbrenner/SecureEpilinker/linkconfig"
	"github.com/torbrenner/SecureEpilinker/linkinput"
	"github.com/torbrenner/SecureEpilinker/share"
	"github.com/torbrenner/SecureEpilinker/share/clearbackend"
)

const divider3Bristol = `361 367
3 3 3
1 1 0 6 INV
1 1 1 7 INV
1 1 2 8 INV
1 1 3 9 INV
1 1 4 10 INV
1 1 5 11 INV
2 1 6 7 12 AND
2 1 12 8 13 AND
2 1 13 9 14 AND
2 1 14 10 15 AND
2 1 15 11 16 AND
2 1 6 7 17 AND
2 1 17 8 18 AND
2 1 18 3 19 AND
2 1 19 10 20 AND
2 1 20 11 21 AND
2 1 6 7 22 AND
2 1 22 8 23 AND
2 1 23 9 24 AND
2 1 24 4 25 AND
2 1 25 11 26 AND
2 1 6 7 27 AND
2 1 27 8 28 AND
2 1 28 3 29 AND
2 1 29 4 30 AND
2 1 30 11 31 AND
2 1 6 7 32 AND
2 1 32 8 33 AND
2 1 33 9 34 AND
2 1 34 10 35 AND
2 1 35 5 36 AND
2 1 6 7 37 AND
2 1 37 8 38 AND
2 1 38 3 39 AND
2 1 39 10 40 AND
2 1 40 5 41 AND
2 1 6 7 42 AND
2 1 42 8 43 AND
2 1 43 9 44 AND
2 1 44 4 45 AND
2 1 45 5 46 AND
2 1 6 7 47 AND
2 1 47 8 48 AND
2 1 48 3 49 AND
2 1 49 4 50 AND
2 1 50 5 51 AND
2 1 0 7 52 AND
2 1 52 8 53 AND
2 1 53 9 54 AND
2 1 54 10 55 AND
2 1 55 11 56 AND
2 1 0 7 57 AND
2 1 57 8 58 AND
2 1 58 3 59 AND
2 1 59 10 60 AND
2 1 60 11 61 AND
2 1 0 7 62 AND
2 1 62 8 63 AND
2 1 63 9 64 AND
2 1 64 4 65 AND
2 1 65 11 66 AND
2 1 0 7 67 AND
2 1 67 8 68 AND
2 1 68 3 69 AND
2 1 69 4 70 AND
2 1 70 11 71 AND
2 1 0 7 72 AND
2 1 72 8 73 AND
2 1 73 9 74 AND
2 1 74 10 75 AND
2 1 75 5 76 AND
2 1 0 7 77 AND
2 1 77 8 78 AND
2 1 78 3 79 AND
2 1 79 10 80 AND
2 1 80 5 81 AND
2 1 0 7 82 AND
2 1 82 8 83 AND
2 1 83 9 84 AND
2 1 84 4 85 AND
2 1 85 5 86 AND
2 1 0 7 87 AND
2 1 87 8 88 AND
2 1 88 3 89 AND
2 1 89 4 90 AND
2 1 90 5 91 AND
2 1 6 1 92 AND
2 1 92 8 93 AND
2 1 93 9 94 AND
2 1 94 10 95 AND
2 1 95 11 96 AND
2 1 6 1 97 AND
2 1 97 8 98 AND
2 1 98 3 99 AND
2 1 99 10 100 AND
2 1 100 11 101 AND
2 1 6 1 102 AND
2 1 102 8 103 AND
2 1 103 9 104 AND
2 1 104 4 105 AND
2 1 105 11 106 AND
2 1 6 1 107 AND
2 1 107 8 108 AND
2 1 108 3 109 AND
2 1 109 4 110 AND
2 1 110 11 111 AND
2 1 6 1 112 AND
2 1 112 8 113 AND
2 1 113 9 114 AND
2 1 114 10 115 AND
2 1 115 5 116 AND
2 1 6 1 117 AND
2 1 117 8 118 AND
2 1 118 3 119 AND
2 1 119 10 120 AND
2 1 120 5 121 AND
2 1 6 1 122 AND
2 1 122 8 123 AND
2 1 123 9 124 AND
2 1 124 4 125 AND
2 1 125 5 126 AND
2 1 6 1 127 AND
2 1 127 8 128 AND
2 1 128 3 129 AND
2 1 129 4 130 AND
2 1 130 5 131 AND
2 1 0 1 132 AND
2 1 132 8 133 AND
2 1 133 9 134 AND
2 1 134 10 135 AND
2 1 135 11 136 AND
2 1 0 1 137 AND
2 1 137 8 138 AND
2 1 138 3 139 AND
2 1 139 10 140 AND
2 1 140 11 141 AND
2 1 0 1 142 AND
2 1 142 8 143 AND
2 1 143 9 144 AND
2 1 144 4 145 AND
2 1 145 11 146 AND
2 1 0 1 147 AND
2 1 147 8 148 AND
2 1 148 3 149 AND
2 1 149 4 150 AND
2 1 150 11 151 AND
2 1 0 1 152 AND
2 1 152 8 153 AND
2 1 153 9 154 AND
2 1 154 10 155 AND
2 1 155 5 156 AND
2 1 0 1 157 AND
2 1 157 8 158 AND
2 1 158 3 159 AND
2 1 159 10 160 AND
2 1 160 5 161 AND
2 1 0 1 162 AND
2 1 162 8 163 AND
2 1 163 9 164 AND
2 1 164 4 165 AND
2 1 165 5 166 AND
2 1 0 1 167 AND
2 1 167 8 168 AND
2 1 168 3 169 AND
2 1 169 4 170 AND
2 1 170 5 171 AND
2 1 6 7 172 AND
2 1 172 2 173 AND
2 1 173 9 174 AND
2 1 174 10 175 AND
2 1 175 11 176 AND
2 1 6 7 177 AND
2 1 177 2 178 AND
2 1 178 3 179 AND
2 1 179 10 180 AND
2 1 180 11 181 AND
2 1 6 7 182 AND
2 1 182 2 183 AND
2 1 183 9 184 AND
2 1 184 4 185 AND
2 1 185 11 186 AND
2 1 6 7 187 AND
2 1 187 2 188 AND
2 1 188 3 189 AND
2 1 189 4 190 AND
2 1 190 11 191 AND
2 1 6 7 192 AND
2 1 192 2 193 AND
2 1 193 9 194 AND
2 1 194 10 195 AND
2 1 195 5 196 AND
2 1 6 7 197 AND
2 1 197 2 198 AND
2 1 198 3 199 AND
2 1 199 10 200 AND
2 1 200 5 201 AND
2 1 6 7 202 AND
2 1 202 2 203 AND
2 1 203 9 204 AND
2 1 204 4 205 AND
2 1 205 5 206 AND
2 1 6 7 207 AND
2 1 207 2 208 AND
2 1 208 3 209 AND
2 1 209 4 210 AND
2 1 210 5 211 AND
2 1 0 7 212 AND
2 1 212 2 213 AND
2 1 213 9 214 AND
2 1 214 10 215 AND
2 1 215 11 216 AND
2 1 0 7 217 AND
2 1 217 2 218 AND
2 1 218 3 219 AND
2 1 219 10 220 AND
2 1 220 11 221 AND
2 1 0 7 222 AND
2 1 222 2 223 AND
2 1 223 9 224 AND
2 1 224 4 225 AND
2 1 225 11 226 AND
2 1 0 7 227 AND
2 1 227 2 228 AND
2 1 228 3 229 AND
2 1 229 4 230 AND
2 1 230 11 231 AND
2 1 0 7 232 AND
2 1 232 2 233 AND
2 1 233 9 234 AND
2 1 234 10 235 AND
2 1 235 5 236 AND
2 1 0 7 237 AND
2 1 237 2 238 AND
2 1 238 3 239 AND
2 1 239 10 240 AND
2 1 240 5 241 AND
2 1 0 7 242 AND
2 1 242 2 243 AND
2 1 243 9 244 AND
2 1 244 4 245 AND
2 1 245 5 246 AND
2 1 0 7 247 AND
2 1 247 2 248 AND
2 1 248 3 249 AND
2 1 249 4 250 AND
2 1 250 5 251 AND
2 1 6 1 252 AND
2 1 252 2 253 AND
2 1 253 9 254 AND
2 1 254 10 255 AND
2 1 255 11 256 AND
2 1 6 1 257 AND
2 1 257 2 258 AND
2 1 258 3 259 AND
2 1 259 10 260 AND
2 1 260 11 261 AND
2 1 6 1 262 AND
2 1 262 2 263 AND
2 1 263 9 264 AND
2 1 264 4 265 AND
2 1 265 11 266 AND
2 1 6 1 267 AND
2 1 267 2 268 AND
2 1 268 3 269 AND
2 1 269 4 270 AND
2 1 270 11 271 AND
2 1 6 1 272 AND
2 1 272 2 273 AND
2 1 273 9 274 AND
2 1 274 10 275 AND
2 1 275 5 276 AND
2 1 6 1 277 AND
2 1 277 2 278 AND
2 1 278 3 279 AND
2 1 279 10 280 AND
2 1 280 5 281 AND
2 1 6 1 282 AND
2 1 282 2 283 AND
2 1 283 9 284 AND
2 1 284 4 285 AND
2 1 285 5 286 AND
2 1 6 1 287 AND
2 1 287 2 288 AND
2 1 288 3 289 AND
2 1 289 4 290 AND
2 1 290 5 291 AND
2 1 0 1 292 AND
2 1 292 2 293 AND
2 1 293 9 294 AND
2 1 294 10 295 AND
2 1 295 11 296 AND
2 1 0 1 297 AND
2 1 297 2 298 AND
2 1 298 3 299 AND
2 1 299 10 300 AND
2 1 300 11 301 AND
2 1 0 1 302 AND
2 1 302 2 303 AND
2 1 303 9 304 AND
2 1 304 4 305 AND
2 1 305 11 306 AND
2 1 0 1 307 AND
2 1 307 2 308 AND
2 1 308 3 309 AND
2 1 309 4 310 AND
2 1 310 11 311 AND
2 1 0 1 312 AND
2 1 312 2 313 AND
2 1 313 9 314 AND
2 1 314 10 315 AND
2 1 315 5 316 AND
2 1 0 1 317 AND
2 1 317 2 318 AND
2 1 318 3 319 AND
2 1 319 10 320 AND
2 1 320 5 321 AND
2 1 0 1 322 AND
2 1 322 2 323 AND
2 1 323 9 324 AND
2 1 324 4 325 AND
2 1 325 5 326 AND
2 1 0 1 327 AND
2 1 327 2 328 AND
2 1 328 3 329 AND
2 1 329 4 330 AND
2 1 330 5 331 AND
2 1 61 106 332 OR
2 1 332 141 333 OR
2 1 333 146 334 OR
2 1 334 151 335 OR
2 1 335 191 336 OR
2 1 336 196 337 OR
2 1 337 221 338 OR
2 1 338 231 339 OR
2 1 339 236 340 OR
2 1 340 241 341 OR
2 1 341 266 342 OR
2 1 342 276 343 OR
2 1 343 281 344 OR
2 1 344 286 345 OR
2 1 345 301 346 OR
2 1 346 306 347 OR
2 1 347 316 348 OR
2 1 348 321 349 OR
2 1 349 326 350 OR
2 1 350 331 351 OR
2 1 101 141 352 OR
2 1 352 186 353 OR
2 1 353 226 354 OR
2 1 354 261 355 OR
2 1 355 266 356 OR
2 1 356 271 357 OR
2 1 357 301 358 OR
2 1 358 306 359 OR
2 1 359 311 360 OR
2 1 181 221 361 OR
2 1 361 261 362 OR
2 1 362 301 363 OR
2 1 351 351 364 OR
2 1 360 360 365 OR
2 1 363 363 366 OR
`

func testConfig(t *testing.T) (*linkconfig.LinkConfig, string) {
	t.Helper()
	fields := []linkconfig.FieldDescriptor{
		{Name: "name_sim", Weight: 1.0, Comparator: linkconfig.SetSimilarity, BitWidth: 1},
		{Name: "exact", Weight: 1.0, Comparator: linkconfig.Equality, BitWidth: 1},
	}
	cfg, err := linkconfig.New(fields, nil, 0.5, 0.0, false, 32)
	if err != nil {
		t.Fatalf("linkconfig.New: %v", err)
	}
	if err := cfg.SetPrecisions(1, 8); err != nil {
		t.Fatalf("SetPrecisions: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "int_div_3.bristol")
	if err := os.WriteFile(path, []byte(divider3Bristol), 0o644); err != nil {
		t.Fatalf("writing divider fixture: %v", err)
	}
	return cfg, dir
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg, dir := testConfig(t)
	b := clearbackend.New(share.Client)
	e, err := New(b, cfg, Config{CircuitDataDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func bit(v uint64) linkinput.Bitmask { return linkinput.Bitmask{byte(v)} }

func TestEngineStateMachineHappyPath(t *testing.T) {
	e := newTestEngine(t)
	if e.State() != Created {
		t.Fatalf("initial state = %s, want Created", e.State())
	}
	if err := e.BuildCircuit(1); err != nil {
		t.Fatalf("BuildCircuit: %v", err)
	}
	if e.State() != Built {
		t.Fatalf("state after BuildCircuit = %s, want Built", e.State())
	}
	if err := e.RunSetup(); err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if e.State() != SetupDone {
		t.Fatalf("state after RunSetup = %s, want SetupDone", e.State())
	}

	client := linkinput.ClientInput{
		NVals: 1,
		Record: map[string]linkinput.Entry{
			"name_sim": linkinput.Present(bit(1)),
			"exact":    linkinput.Present(bit(1)),
		},
	}
	server := linkinput.ServerInput{
		NVals: 1,
		Database: map[string][]linkinput.Entry{
			"name_sim": {linkinput.Present(bit(1))},
			"exact":    {linkinput.Present(bit(1))},
		},
	}
	res, err := e.RunAsBoth(client, server)
	if err != nil {
		t.Fatalf("RunAsBoth: %v", err)
	}
	if got := res.Match.Handle.([]uint64)[0]; got != 1 {
		t.Fatalf("match = %d, want 1", got)
	}
	if e.State() != Created {
		t.Fatalf("state after run = %s, want Created", e.State())
	}
}

func TestEngineBuildCircuitRejectsEmptyDatabase(t *testing.T) {
	e := newTestEngine(t)
	err := e.BuildCircuit(0)
	if !errors.Is(err, linkconfig.ErrEmptyDatabase) {
		t.Fatalf("expected ErrEmptyDatabase, got %v", err)
	}
	if e.State() != Created {
		t.Fatalf("state after failed build = %s, want Created", e.State())
	}
}

func TestEngineBuildCircuitMissingDividerFile(t *testing.T) {
	cfg, _ := testConfig(t)
	b := clearbackend.New(share.Client)
	e, err := New(b, cfg, Config{CircuitDataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = e.BuildCircuit(1)
	if !errors.Is(err, linkconfig.ErrBackendError) {
		t.Fatalf("expected ErrBackendError for missing divider file, got %v", err)
	}
}

func TestEngineIllegalStateTransitions(t *testing.T) {
	e := newTestEngine(t)
	if err := e.RunSetup(); !errors.Is(err, linkconfig.ErrIllegalState) {
		t.Fatalf("RunSetup from Created: expected ErrIllegalState, got %v", err)
	}
	if _, err := e.RunAsClient(linkinput.ClientInput{}); !errors.Is(err, linkconfig.ErrIllegalState) {
		t.Fatalf("RunAsClient from Created: expected ErrIllegalState, got %v", err)
	}
	if err := e.BuildCircuit(1); err != nil {
		t.Fatalf("BuildCircuit: %v", err)
	}
	if err := e.BuildCircuit(1); !errors.Is(err, linkconfig.ErrIllegalState) {
		t.Fatalf("second BuildCircuit: expected ErrIllegalState, got %v", err)
	}
}

func TestEngineAutoRunSetupWarnsAndSucceeds(t *testing.T) {
	e := newTestEngine(t)
	var logBuf bytes.Buffer
	e.econf.Env = env.Config{Logger: log.New(&logBuf, "", 0)}

	if err := e.BuildCircuit(1); err != nil {
		t.Fatalf("BuildCircuit: %v", err)
	}
	client := linkinput.ClientInput{
		NVals: 1,
		Record: map[string]linkinput.Entry{
			"name_sim": linkinput.Present(bit(1)),
			"exact":    linkinput.Present(bit(1)),
		},
	}
	if _, err := e.RunAsClient(client); err != nil {
		t.Fatalf("RunAsClient: %v", err)
	}
	if logBuf.Len() == 0 {
		t.Fatal("expected a logged warning when auto-running setup from Built")
	}
}

func TestEngineResetReturnsToCreatedFromAnyState(t *testing.T) {
	e := newTestEngine(t)
	if err := e.BuildCircuit(1); err != nil {
		t.Fatalf("BuildCircuit: %v", err)
	}
	if err := e.RunSetup(); err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if e.State() != Created {
		t.Fatalf("state after Reset = %s, want Created", e.State())
	}
	if err := e.BuildCircuit(1); err != nil {
		t.Fatalf("BuildCircuit after Reset: %v", err)
	}
}

func TestEngineStatsReflectsLastBuild(t *testing.T) {
	e := newTestEngine(t)
	if err := e.BuildCircuit(4); err != nil {
		t.Fatalf("BuildCircuit: %v", err)
	}
	stats := e.Stats()
	if stats.NumFields != 2 {
		t.Fatalf("NumFields = %d, want 2", stats.NumFields)
	}
	if stats.NVals != 4 {
		t.Fatalf("NVals = %d, want 4", stats.NVals)
	}
}
