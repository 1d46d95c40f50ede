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

package modelsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/blinklabs-io/husky/cache"
	"github.com/blinklabs-io/husky/contentstore"
	"github.com/blinklabs-io/husky/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	ref     string
	waitErr error
}

func (f *fakeTx) Ref() string                    { return f.ref }
func (f *fakeTx) Wait(ctx context.Context) error { return f.waitErr }

type fakeModelContract struct {
	mu       sync.Mutex
	entries  []*registry.ModelEntry
	countErr error
	minted   []string
}

func (f *fakeModelContract) ModelCount(ctx context.Context) (uint64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.entries)), nil
}

func (f *fakeModelContract) ModelAtIndex(
	ctx context.Context,
	index uint64,
) (*registry.ModelEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= uint64(len(f.entries)) {
		return nil, errors.New("index out of range")
	}
	if f.entries[index] == nil {
		return nil, errors.New("malformed registry entry")
	}
	return f.entries[index], nil
}

func (f *fakeModelContract) Mint(
	ctx context.Context,
	owner string,
	name string,
	category string,
	priceWei *big.Int,
	metadataRef string,
) (registry.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minted = append(f.minted, metadataRef)
	f.entries = append(f.entries, &registry.ModelEntry{
		Id:          uint64(len(f.entries)),
		Owner:       owner,
		Name:        name,
		Category:    category,
		Status:      registry.ModelStatusPending,
		PriceWei:    priceWei,
		MetadataRef: metadataRef,
	})
	return &fakeTx{ref: fmt.Sprintf("0xmint%d", len(f.entries))}, nil
}

func (f *fakeModelContract) Rate(
	ctx context.Context,
	rater string,
	modelId uint64,
	rating uint8,
) (registry.TxHandle, error) {
	return &fakeTx{ref: "0xrate1"}, nil
}

type fakeMarketContract struct {
	listings   map[uint64]*registry.ListingEntry
	lookupErr  error
	purchases  []uint64
	purchaseMu sync.Mutex
}

func (f *fakeMarketContract) Listing(
	ctx context.Context,
	modelId uint64,
) (*registry.ListingEntry, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.listings[modelId], nil
}

func (f *fakeMarketContract) Purchase(
	ctx context.Context,
	buyer string,
	modelId uint64,
	priceWei *big.Int,
) (registry.TxHandle, error) {
	f.purchaseMu.Lock()
	defer f.purchaseMu.Unlock()
	f.purchases = append(f.purchases, modelId)
	return &fakeTx{ref: "0xbuy1"}, nil
}

type testEnv struct {
	syncer *Syncer
	models *fakeModelContract
	market *fakeMarketContract
	blobs  map[string][]byte
	mu     sync.Mutex
	pins   int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		models: &fakeModelContract{},
		market: &fakeMarketContract{
			listings: make(map[uint64]*registry.ListingEntry),
		},
		blobs: make(map[string][]byte),
	}
	gateway := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			env.mu.Lock()
			data, ok := env.blobs[strings.TrimPrefix(r.URL.Path, "/")]
			env.mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		}),
	)
	t.Cleanup(gateway.Close)
	pinner := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			env.mu.Lock()
			env.pins++
			hash := fmt.Sprintf("bafypin%d", env.pins)
			env.blobs[hash] = body
			env.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]string{"hash": hash})
		}),
	)
	t.Cleanup(pinner.Close)
	localCache, err := cache.New(cache.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		localCache.Close()
	})
	content, err := contentstore.New(contentstore.Config{
		Cache:      localCache,
		Gateways:   []string{gateway.URL},
		PinningURL: pinner.URL,
	})
	require.NoError(t, err)
	env.syncer = NewSyncer(SyncerConfig{Content: content})
	return env
}

func (env *testEnv) addBlob(hash string, v any) {
	data, _ := json.Marshal(v)
	env.mu.Lock()
	env.blobs[hash] = data
	env.mu.Unlock()
}

func (env *testEnv) addEntry(entry *registry.ModelEntry) {
	env.models.mu.Lock()
	env.models.entries = append(env.models.entries, entry)
	env.models.mu.Unlock()
}

func TestSyncJoinsListingAndMetadata(t *testing.T) {
	env := newTestEnv(t)
	env.addBlob("bafymeta0", Metadata{
		Description: "image classifier",
		Framework:   "pytorch",
	})
	env.addEntry(&registry.ModelEntry{
		Id:          0,
		Owner:       "0xABC",
		Name:        "resnet-fine",
		Category:    "vision",
		Status:      registry.ModelStatusValidated,
		PriceWei:    big.NewInt(777),
		MetadataRef: "bafymeta0",
		RatingSum:   9,
		RatingCount: 2,
	})
	env.addEntry(&registry.ModelEntry{
		Id:       1,
		Owner:    "0xDEF",
		Name:     "unlisted",
		Category: "nlp",
		Status:   registry.ModelStatusPending,
		PriceWei: big.NewInt(555),
	})
	env.market.listings[0] = &registry.ListingEntry{
		ModelId:   0,
		BasePrice: big.NewInt(1000),
		Active:    true,
	}
	got, err := env.syncer.Sync(
		context.Background(),
		env.models,
		env.market,
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "resnet-fine", got[0].Name)
	assert.True(t, got[0].HasMetadata)
	assert.Equal(t, "pytorch", got[0].Metadata.Framework)
	// Listed model carries the listing price
	assert.Equal(t, int64(1000), got[0].PriceWei.Int64())
	assert.True(t, got[0].ForSale())
	assert.InDelta(t, 4.5, got[0].Rating, 0.001)
	// Unlisted model is not for sale and priced at zero despite the
	// on-chain price field
	assert.Nil(t, got[1].Listing)
	assert.Equal(t, int64(0), got[1].PriceWei.Int64())
	assert.False(t, got[1].ForSale())
	assert.Equal(t, float64(0), got[1].Rating)
}

func TestSyncInactiveListingPriceZero(t *testing.T) {
	env := newTestEnv(t)
	env.addEntry(&registry.ModelEntry{
		Id:       0,
		Name:     "delisted",
		Status:   registry.ModelStatusValidated,
		PriceWei: big.NewInt(999),
	})
	env.market.listings[0] = &registry.ListingEntry{
		ModelId:   0,
		BasePrice: big.NewInt(999),
		Active:    false,
	}
	got, err := env.syncer.Sync(
		context.Background(),
		env.models,
		env.market,
	)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Listing)
	assert.False(t, got[0].ForSale())
	assert.Equal(t, int64(0), got[0].PriceWei.Int64())
}

func TestSyncMetadataFailureIncludesRecord(t *testing.T) {
	env := newTestEnv(t)
	env.addEntry(&registry.ModelEntry{
		Id:          0,
		Name:        "orphaned-meta",
		Category:    "audio",
		Status:      registry.ModelStatusValidated,
		MetadataRef: "bafygone",
	})
	got, err := env.syncer.Sync(
		context.Background(),
		env.models,
		env.market,
	)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "orphaned-meta", got[0].Name)
	assert.False(t, got[0].HasMetadata)
	assert.Empty(t, got[0].Metadata.Description)
}

func TestSyncRegistryReadFailureSkipsRecord(t *testing.T) {
	env := newTestEnv(t)
	env.addEntry(&registry.ModelEntry{Id: 0, Name: "first"})
	env.addEntry(nil) // unreadable entry
	env.addEntry(&registry.ModelEntry{Id: 2, Name: "third"})
	got, err := env.syncer.Sync(
		context.Background(),
		env.models,
		env.market,
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "third", got[1].Name)
}

func TestSyncCountFailureIsStructural(t *testing.T) {
	env := newTestEnv(t)
	env.models.countErr = errors.New("rpc unavailable")
	_, err := env.syncer.Sync(
		context.Background(),
		env.models,
		env.market,
	)
	require.Error(t, err)
}

func TestSyncMatchesDirectEnumeration(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 25; i++ {
		env.addEntry(&registry.ModelEntry{
			Id:   uint64(i),
			Name: fmt.Sprintf("model-%d", i),
		})
	}
	got, err := env.syncer.Sync(
		context.Background(),
		env.models,
		env.market,
	)
	require.NoError(t, err)
	require.Len(t, got, 25)
	// Unordered completion within the pass must not reorder results
	for i := 0; i < 25; i++ {
		assert.Equal(t, uint64(i), got[i].Id)
		assert.Equal(t, fmt.Sprintf("model-%d", i), got[i].Name)
	}
}

func TestUploadWritesBlobsBeforeChain(t *testing.T) {
	env := newTestEnv(t)
	txRef, err := env.syncer.Upload(
		context.Background(),
		env.models,
		UploadRequest{
			Owner:    "0xABC",
			Name:     "new-model",
			Category: "vision",
			PriceWei: big.NewInt(1234),
			Metadata: Metadata{Description: "fresh upload"},
			Artifact: []byte("binary weights"),
		},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, txRef)
	require.Len(t, env.models.minted, 1)
	// The minted metadata ref must resolve to a blob whose artifact
	// ref resolves to the artifact bytes
	env.mu.Lock()
	metaBlob := env.blobs[env.models.minted[0]]
	env.mu.Unlock()
	require.NotNil(t, metaBlob)
	var meta Metadata
	require.NoError(t, json.Unmarshal(metaBlob, &meta))
	assert.Equal(t, "fresh upload", meta.Description)
	require.NotEmpty(t, meta.ArtifactRef)
	env.mu.Lock()
	artifact := env.blobs[meta.ArtifactRef]
	env.mu.Unlock()
	assert.Equal(t, []byte("binary weights"), artifact)
	assert.Equal(t, int64(len("binary weights")), meta.SizeBytes)
}

func TestRateValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.syncer.Rate(
		context.Background(),
		env.models,
		"0xABC",
		0,
		0,
	)
	require.Error(t, err)
	_, err = env.syncer.Rate(
		context.Background(),
		env.models,
		"0xABC",
		0,
		6,
	)
	require.Error(t, err)
	_, err = env.syncer.Rate(
		context.Background(),
		env.models,
		"0xABC",
		0,
		5,
	)
	require.NoError(t, err)
}

func TestDeriveRating(t *testing.T) {
	testDefs := []struct {
		sum      uint64
		count    uint64
		expected float64
	}{
		{0, 0, 0},
		{10, 0, 0},
		{10, 2, 5},
		{7, 2, 3.5},
	}
	for _, testDef := range testDefs {
		got := deriveRating(testDef.sum, testDef.count)
		if got != testDef.expected {
			t.Fatalf(
				"deriveRating(%d, %d) = %v, expected %v",
				testDef.sum,
				testDef.count,
				got,
				testDef.expected,
			)
		}
	}
}
