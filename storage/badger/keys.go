// Copyright 2025 Poiesic Systems
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

package badger

import (
	"encoding/binary"

	"github.com/poiesic/permitsearch/core"
)

// Key prefixes for different data types
const (
	permitPrefix       = "permit:"
	permitStatusPrefix = "pstatus:"
)

// makePermitKey generates a key for a permit by ID.
// Format: prefix + 8 byte big endian ID, so iteration order is ascending ID.
func makePermitKey(id core.ID) []byte {
	buf := make([]byte, len(permitPrefix)+8)
	offset := copy(buf, permitPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialStatusKey generates the index prefix shared by all permits with a status.
// Format: prefix:status\x00
func makePartialStatusKey(status string) []byte {
	buf := make([]byte, len(permitStatusPrefix)+len(status)+1)
	offset := copy(buf, permitStatusPrefix)
	offset += copy(buf[offset:], status)
	buf[offset] = 0
	return buf
}

// makeStatusKey generates a composite key for the status index.
// Format: prefix:status\x00id
func makeStatusKey(status string, id core.ID) []byte {
	partial := makePartialStatusKey(status)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
