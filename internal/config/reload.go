// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// Digest hashes path's current bytes, the Go-native replacement for the
// original importer's config_file_digest (zfile_digest). The controller
// hashes the file every 10 ticks and exits on a change (spec §9
// "Configuration reload").
func Digest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("digest config %q: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Changed reports whether path's current digest differs from
// lastDigest. An empty lastDigest never reports changed (first check
// after startup has nothing to compare against).
func Changed(path, lastDigest string) (changed bool, digest string, err error) {
	digest, err = Digest(path)
	if err != nil {
		return false, "", err
	}
	if lastDigest == "" {
		return false, digest, nil
	}
	return digest != lastDigest, digest, nil
}
