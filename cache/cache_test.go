// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"bytes"
	"errors"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error creating cache: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
	})
	return c
}

func TestBlobRoundTrip(t *testing.T) {
	c := newTestCache(t)
	testKey := "bafytestblob1"
	testVal := []byte("test blob content")
	if err := c.SetBlob(testKey, testVal); err != nil {
		t.Fatalf("unexpected error setting blob: %v", err)
	}
	got, err := c.GetBlob(testKey)
	if err != nil {
		t.Fatalf("unexpected error getting blob: %v", err)
	}
	if !bytes.Equal(got, testVal) {
		t.Fatalf("expected %q, got %q", testVal, got)
	}
	if !c.HasBlob(testKey) {
		t.Fatalf("expected HasBlob to report true")
	}
}

func TestBlobNotFound(t *testing.T) {
	c := newTestCache(t)
	_, err := c.GetBlob("missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got: %v", err)
	}
	if c.HasBlob("missing") {
		t.Fatalf("expected HasBlob to report false")
	}
}

func TestBlobLastWriteWins(t *testing.T) {
	c := newTestCache(t)
	testKey := "overwritten"
	if err := c.SetBlob(testKey, []byte("first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.SetBlob(testKey, []byte("second")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.GetBlob(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected last write to win, got %q", got)
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	c := newTestCache(t)
	row := &IdentityRow{
		Address:           "0xABCDEF0123456789",
		DisplayName:       "alice",
		Bio:               "model developer",
		Role:              "developer",
		Reputation:        42,
		StakedAmount:      "1000000000000000000",
		RegisteredAtEpoch: 1700000000,
		IsActive:          true,
	}
	if err := c.SetIdentity(row); err != nil {
		t.Fatalf("unexpected error setting identity: %v", err)
	}
	// Lookup is case-insensitive on address
	got, err := c.GetIdentity("0xabcdef0123456789")
	if err != nil {
		t.Fatalf("unexpected error getting identity: %v", err)
	}
	if got == nil {
		t.Fatalf("expected identity row, got nil")
	}
	if got.DisplayName != "alice" || got.Reputation != 42 {
		t.Fatalf("unexpected identity row: %+v", got)
	}
	if got.Address != "0xabcdef0123456789" {
		t.Fatalf("expected normalized address, got %q", got.Address)
	}
}

func TestIdentityMissing(t *testing.T) {
	c := newTestCache(t)
	got, err := c.GetIdentity("0x0000000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing identity, got %+v", got)
	}
}

func TestIdentityOverwrite(t *testing.T) {
	c := newTestCache(t)
	row := &IdentityRow{
		Address:     "0x1111",
		DisplayName: "before",
		Role:        "buyer",
	}
	if err := c.SetIdentity(row); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row.DisplayName = "after"
	row.Role = "developer"
	if err := c.SetIdentity(row); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.GetIdentity("0x1111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DisplayName != "after" || got.Role != "developer" {
		t.Fatalf("expected updated row, got %+v", got)
	}
}
