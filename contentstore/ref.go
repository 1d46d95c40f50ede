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

package contentstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// localRefPrefix marks references produced by the local fallback store.
// They are only resolvable on the device that produced them.
const localRefPrefix = "local-sha256-"

// BlobRef is an opaque content-addressed pointer into the blob store.
// Equal hash implies equal content by construction.
type BlobRef struct {
	Hash     string
	MimeHint string
}

// IsLocal reports whether the reference was produced by the local
// fallback store rather than the pinning provider.
func (r BlobRef) IsLocal() bool {
	return strings.HasPrefix(r.Hash, localRefPrefix)
}

// IsZero reports whether the reference is empty.
func (r BlobRef) IsZero() bool {
	return r.Hash == ""
}

func (r BlobRef) String() string {
	return r.Hash
}

// newLocalRef builds a device-scoped reference for content that could
// not be submitted to the pinning provider.
func newLocalRef(data []byte, mimeHint string) BlobRef {
	sum := sha256.Sum256(data)
	return BlobRef{
		Hash:     localRefPrefix + hex.EncodeToString(sum[:]),
		MimeHint: mimeHint,
	}
}
